package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"flashsale/internal/middleware"
	"flashsale/internal/model"
	"flashsale/internal/service/order"
	"flashsale/pkg/utils"
)

// OrderHandler serves the direct order endpoints
type OrderHandler struct {
	orderService order.OrderService
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orderService order.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create handles POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid request: "+err.Error())
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeUnauthorized),
			utils.CodeUnauthorized, "authentication required")
		return
	}

	created, err := h.orderService.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, created)
}

// Get handles GET /api/v1/orders/:order_no
func (h *OrderHandler) Get(c *gin.Context) {
	orderNo := c.Param("order_no")
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeUnauthorized),
			utils.CodeUnauthorized, "authentication required")
		return
	}

	found, err := h.orderService.GetOrderByOrderNo(c.Request.Context(), userID, orderNo)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, found)
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeUnauthorized),
			utils.CodeUnauthorized, "authentication required")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := h.orderService.ListUserOrders(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
	})
}

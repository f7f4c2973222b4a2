package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"flashsale/internal/middleware"
	"flashsale/internal/model"
	"flashsale/pkg/utils"
)

// AdmissionEngine is the slice of the admission engine the HTTP layer
// uses.
type AdmissionEngine interface {
	Join(ctx context.Context, userID, productID uint64) (*model.JoinResponse, error)
	Status(ctx context.Context, ticketID string) (*model.TicketView, error)
	Winners(productID uint64) ([]model.Winner, error)
	Remaining(productID uint64) (int64, error)
	QueueDepth(productID uint64) (int, error)
}

// FlashSaleHandler serves the admission queue endpoints
type FlashSaleHandler struct {
	engine AdmissionEngine
}

// NewFlashSaleHandler creates a flash-sale handler
func NewFlashSaleHandler(engine AdmissionEngine) *FlashSaleHandler {
	return &FlashSaleHandler{engine: engine}
}

// Join handles POST /api/v1/flashsale/products/:product_id/join and its
// body-form alias POST /api/v1/flashsale/join.
func (h *FlashSaleHandler) Join(c *gin.Context) {
	productID, ok := joinProductID(c)
	if !ok {
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeUnauthorized),
			utils.CodeUnauthorized, "authentication required")
		return
	}

	resp, err := h.engine.Join(c.Request.Context(), userID, productID)
	if err != nil {
		// A duplicate join hands the existing ticket back; the client
		// simply resumes polling it.
		if errors.Is(err, utils.ErrAlreadyQueued) && resp != nil {
			utils.SuccessResponse(c, resp)
			return
		}
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

// joinProductID resolves the product from the path parameter, falling
// back to the request body for the alias route. The path form takes an
// empty body, which is what the storefront sends. Writes the error
// response itself when the request is malformed.
func joinProductID(c *gin.Context) (uint64, bool) {
	if raw := c.Param("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
				utils.CodeInvalidParam, "invalid product id")
			return 0, false
		}
		return id, true
	}

	var req model.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid request: "+err.Error())
		return 0, false
	}
	return req.ProductID, true
}

// Status handles GET /api/v1/flashsale/tickets/:ticket_id
func (h *FlashSaleHandler) Status(c *gin.Context) {
	ticketID := c.Param("ticket_id")
	if ticketID == "" {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "ticket id is required")
		return
	}

	view, err := h.engine.Status(c.Request.Context(), ticketID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, view)
}

// Winners handles GET /api/v1/flashsale/products/:product_id/winners
func (h *FlashSaleHandler) Winners(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid product id")
		return
	}

	winners, err := h.engine.Winners(productID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product_id":      productID,
		"winners":         winners,
		"count":           len(winners),
		"fifo_consistent": fifoConsistent(winners),
	})
}

// fifoConsistent reports whether winners were admitted in arrival
// order: enqueue sequence non-decreasing along the success order.
func fifoConsistent(winners []model.Winner) bool {
	for i := 1; i < len(winners); i++ {
		if winners[i].EnqueueSeq < winners[i-1].EnqueueSeq {
			return false
		}
	}
	return true
}

// Queue handles GET /api/v1/flashsale/products/:product_id/queue
func (h *FlashSaleHandler) Queue(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid product id")
		return
	}

	depth, err := h.engine.QueueDepth(productID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	remaining, err := h.engine.Remaining(productID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product_id": productID,
		"depth":      depth,
		"remaining":  remaining,
	})
}

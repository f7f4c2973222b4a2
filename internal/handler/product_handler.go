package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"flashsale/internal/model"
	"flashsale/internal/repository"
	"flashsale/internal/service/stock"
	"flashsale/pkg/utils"
)

// ProductHandler serves product catalogue and sale-window admin
type ProductHandler struct {
	productRepo  repository.ProductRepository
	stockService stock.StockService
}

// NewProductHandler creates a product handler
func NewProductHandler(productRepo repository.ProductRepository, stockService stock.StockService) *ProductHandler {
	return &ProductHandler{
		productRepo:  productRepo,
		stockService: stockService,
	}
}

// Create handles POST /api/v1/admin/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req model.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid request: "+err.Error())
		return
	}

	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      model.ProductStatusInactive,
		SaleStartAt: req.SaleStartAt,
		SaleEndAt:   req.SaleEndAt,
	}
	if err := h.productRepo.Create(c.Request.Context(), product); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// Get handles GET /api/v1/products/:product_id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid product id")
		return
	}

	product, err := h.productRepo.GetByID(c.Request.Context(), productID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	products, total, err := h.productRepo.ListActive(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": products,
		"total":    total,
		"page":     page,
	})
}

// OpenSale handles POST /api/v1/admin/products/:product_id/open
func (h *ProductHandler) OpenSale(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid product id")
		return
	}

	if err := h.stockService.OpenSaleWindow(c.Request.Context(), productID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"product_id": productID, "open": true})
}

// CloseSale handles POST /api/v1/admin/products/:product_id/close
func (h *ProductHandler) CloseSale(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid product id")
		return
	}

	if err := h.stockService.CloseSaleWindow(c.Request.Context(), productID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"product_id": productID, "open": false})
}

// Restock handles POST /api/v1/admin/products/:product_id/restock
func (h *ProductHandler) Restock(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid product id")
		return
	}

	var req model.UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInvalidParam),
			utils.CodeInvalidParam, "invalid request: "+err.Error())
		return
	}

	if err := h.stockService.Restock(c.Request.Context(), productID, req.Delta); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"product_id": productID, "delta": req.Delta})
}

package stock

import (
	"context"
	"errors"

	"flashsale/internal/model"
	"flashsale/internal/repository"
	"flashsale/pkg/log"
	"flashsale/pkg/utils"
)

// AdmissionControl is the slice of the admission engine the stock
// service drives.
type AdmissionControl interface {
	OpenSale(productID uint64, stock int) error
	CloseSale(productID uint64) error
	Restock(productID uint64, delta int) (int64, error)
	Remaining(productID uint64) (int64, error)
}

// StockService stock service interface
type StockService interface {
	// Open the sale window, seeding the admission engine with stock
	OpenSaleWindow(ctx context.Context, productID uint64) error

	// Close the sale window
	CloseSaleWindow(ctx context.Context, productID uint64) error

	// Add stock, reflected both durably and in the engine
	Restock(ctx context.Context, productID uint64, delta int) error

	// Remaining unreserved stock of an open sale
	Remaining(ctx context.Context, productID uint64) (int64, error)
}

// stockService stock service implementation
type stockService struct {
	productRepo repository.ProductRepository
	admission   AdmissionControl
}

// NewStockService creates a stock service
func NewStockService(productRepo repository.ProductRepository, admission AdmissionControl) StockService {
	return &stockService{
		productRepo: productRepo,
		admission:   admission,
	}
}

// OpenSaleWindow activates the product and starts admitting tickets.
// The engine is seeded with the durable stock count, which becomes the
// exact number of winners.
func (s *stockService) OpenSaleWindow(ctx context.Context, productID uint64) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if err := s.admission.OpenSale(productID, product.Stock); err != nil {
		return err
	}

	if err := s.productRepo.UpdateStatus(ctx, productID, model.ProductStatusActive); err != nil {
		// Roll the engine back so durable and in-memory state agree.
		_ = s.admission.CloseSale(productID)
		return err
	}

	log.WithFields(map[string]interface{}{
		"product_id": productID,
		"stock":      product.Stock,
	}).Info("sale window opened")
	return nil
}

// CloseSaleWindow stops admission and deactivates the product.
func (s *stockService) CloseSaleWindow(ctx context.Context, productID uint64) error {
	if err := s.admission.CloseSale(productID); err != nil {
		return err
	}
	return s.productRepo.UpdateStatus(ctx, productID, model.ProductStatusInactive)
}

// Restock adds stock. Negative deltas are rejected; shrinking a live
// sale would orphan reservations already handed out.
func (s *stockService) Restock(ctx context.Context, productID uint64, delta int) error {
	if delta <= 0 {
		return utils.ErrInvalidParam
	}

	if err := s.productRepo.AdjustStock(ctx, productID, delta); err != nil {
		return err
	}

	// Engine restock only applies while the window is open; a product
	// between sales just keeps the durable count.
	if _, err := s.admission.Restock(productID, delta); err != nil &&
		!errors.Is(err, utils.ErrProductNotFound) {
		return err
	}
	return nil
}

// Remaining returns the engine's unreserved stock count.
func (s *stockService) Remaining(ctx context.Context, productID uint64) (int64, error) {
	return s.admission.Remaining(productID)
}

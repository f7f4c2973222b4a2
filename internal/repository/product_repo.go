package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"flashsale/internal/model"
	"flashsale/pkg/utils"
)

// ProductRepository product repository interface
type ProductRepository interface {
	// Create product
	Create(ctx context.Context, product *model.Product) error

	// Get product by ID
	GetByID(ctx context.Context, id uint64) (*model.Product, error)

	// List active products
	ListActive(ctx context.Context, page, pageSize int) ([]*model.Product, int64, error)

	// Adjust stock by delta, refusing to go below zero
	AdjustStock(ctx context.Context, id uint64, delta int) error

	// Decrement one unit of stock, fails when none left
	DecrementStock(ctx context.Context, id uint64, quantity int) error

	// Update sale status
	UpdateStatus(ctx context.Context, id uint64, status int) error
}

// productRepository product repository implementation
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a product
func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID gets a product by ID
func (r *productRepository) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// ListActive lists active products
func (r *productRepository) ListActive(ctx context.Context, page, pageSize int) ([]*model.Product, int64, error) {
	var products []*model.Product
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("status = ?", model.ProductStatusActive)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&products).Error

	return products, total, err
}

// AdjustStock adjusts stock by delta. The guard clause keeps stock from
// going negative under concurrent adjustments.
func (r *productRepository) AdjustStock(ctx context.Context, id uint64, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Update("stock", gorm.Expr("stock + ?", delta))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrStockExhausted
	}
	return nil
}

// DecrementStock atomically takes quantity units of stock.
func (r *productRepository) DecrementStock(ctx context.Context, id uint64, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrStockExhausted
	}
	return nil
}

// UpdateStatus updates the sale status
func (r *productRepository) UpdateStatus(ctx context.Context, id uint64, status int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

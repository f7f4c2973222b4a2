package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flashsale/internal/model"
)

// AllocationLogRepository allocation audit log repository interface
type AllocationLogRepository interface {
	// Record a terminal outcome, idempotent per ticket
	Record(ctx context.Context, entry *model.AllocationLog) error

	// List admitted tickets of a product ordered by success sequence
	ListWinners(ctx context.Context, productID uint64) ([]*model.AllocationLog, error)

	// List all outcomes of a product
	ListByProduct(ctx context.Context, productID uint64, limit int) ([]*model.AllocationLog, error)
}

// allocationLogRepository allocation log repository implementation
type allocationLogRepository struct {
	db *gorm.DB
}

// NewAllocationLogRepository creates an allocation log repository
func NewAllocationLogRepository(db *gorm.DB) AllocationLogRepository {
	return &allocationLogRepository{db: db}
}

// Record inserts an outcome. Redelivered events hit the unique ticket_id
// index and become no-ops.
func (r *allocationLogRepository) Record(ctx context.Context, entry *model.AllocationLog) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticket_id"}},
			DoNothing: true,
		}).
		Create(entry).Error
}

// ListWinners lists admitted tickets in admission order
func (r *allocationLogRepository) ListWinners(ctx context.Context, productID uint64) ([]*model.AllocationLog, error) {
	var entries []*model.AllocationLog
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND outcome = ?", productID, model.TicketStatusSuccess).
		Order("success_seq ASC").
		Find(&entries).Error
	return entries, err
}

// ListByProduct lists outcomes of a product, newest first
func (r *allocationLogRepository) ListByProduct(ctx context.Context, productID uint64, limit int) ([]*model.AllocationLog, error) {
	var entries []*model.AllocationLog
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

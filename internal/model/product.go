package model

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a product on sale
type Product struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int            `gorm:"not null;default:0" json:"stock"`
	Status      int            `gorm:"not null;default:1" json:"status"` // 1: active, 0: inactive
	SaleStartAt *time.Time     `gorm:"index" json:"sale_start_at"`
	SaleEndAt   *time.Time     `json:"sale_end_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name
func (Product) TableName() string {
	return "products"
}

// ProductStatus product status constants
const (
	ProductStatusInactive = 0
	ProductStatusActive   = 1
)

// IsOnSale reports whether the sale window is currently open.
func (p *Product) IsOnSale(now time.Time) bool {
	if p.Status != ProductStatusActive {
		return false
	}
	if p.SaleStartAt != nil && now.Before(*p.SaleStartAt) {
		return false
	}
	if p.SaleEndAt != nil && now.After(*p.SaleEndAt) {
		return false
	}
	return true
}

// CreateProductRequest create product request
type CreateProductRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=255"`
	Description string     `json:"description"`
	Price       float64    `json:"price" binding:"required,gt=0"`
	Stock       int        `json:"stock" binding:"required,gte=0"`
	SaleStartAt *time.Time `json:"sale_start_at"`
	SaleEndAt   *time.Time `json:"sale_end_at"`
}

// UpdateStockRequest restock / stock adjustment request
type UpdateStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

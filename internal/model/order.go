package model

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus order status
type OrderStatus int

const (
	// OrderStatusPending order created, awaiting payment
	OrderStatusPending OrderStatus = 1
	// OrderStatusPaid order paid
	OrderStatusPaid OrderStatus = 2
	// OrderStatusCancelled order cancelled
	OrderStatusCancelled OrderStatus = 3
)

// Order represents an order record
type Order struct {
	ID        uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo   string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID    uint64      `gorm:"index;not null" json:"user_id"`
	ProductID uint64      `gorm:"index;not null" json:"product_id"`
	// TicketID links a flash-sale order back to its admission ticket,
	// empty for direct orders. Unique so confirmation retries stay
	// idempotent at the storage layer too.
	TicketID  string      `gorm:"type:varchar(64);uniqueIndex" json:"ticket_id,omitempty"`
	Quantity  int         `gorm:"not null;default:1" json:"quantity"`
	Amount    float64     `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status    OrderStatus `gorm:"not null;default:1" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name
func (Order) TableName() string {
	return "orders"
}

// CreateOrderRequest direct order request
type CreateOrderRequest struct {
	ProductID uint64 `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// JoinRequest flash-sale join request
type JoinRequest struct {
	ProductID uint64 `json:"product_id" binding:"required"`
}

// JoinResponse flash-sale join response
type JoinResponse struct {
	TicketID string       `json:"ticket_id"`
	Status   TicketStatus `json:"status"`
	Position int          `json:"position"`
}

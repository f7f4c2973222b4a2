package model

import (
	"time"
)

// AllocationLog is the audit trail of terminal ticket outcomes,
// written asynchronously by the allocation consumer.
type AllocationLog struct {
	ID         uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID   string       `gorm:"type:varchar(64);uniqueIndex;not null" json:"ticket_id"`
	UserID     uint64       `gorm:"index;not null" json:"user_id"`
	ProductID  uint64       `gorm:"index;not null" json:"product_id"`
	Outcome    TicketStatus `gorm:"type:varchar(16);not null" json:"outcome"`
	EnqueueSeq uint64       `gorm:"not null" json:"enqueue_seq"`
	SuccessSeq uint64       `gorm:"not null;default:0" json:"success_seq"`
	OrderNo    string       `gorm:"type:varchar(64)" json:"order_no"`
	CreatedAt  time.Time    `json:"created_at"`
}

// TableName returns the table name
func (AllocationLog) TableName() string {
	return "allocation_logs"
}

// AllocationEvent is the message published on each terminal transition.
type AllocationEvent struct {
	TicketID   string       `json:"ticket_id"`
	UserID     uint64       `json:"user_id"`
	ProductID  uint64       `json:"product_id"`
	Outcome    TicketStatus `json:"outcome"`
	EnqueueSeq uint64       `json:"enqueue_seq"`
	SuccessSeq uint64       `json:"success_seq"`
	OrderNo    string       `json:"order_no"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// TopicAllocation is the queue topic carrying allocation events.
const TopicAllocation = "flashsale.allocation"

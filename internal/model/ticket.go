package model

import (
	"time"
)

// TicketStatus ticket lifecycle state
type TicketStatus string

const (
	// TicketStatusQueued waiting in the per-product FIFO queue
	TicketStatusQueued TicketStatus = "QUEUED"
	// TicketStatusProcessing claimed by the allocator, decision in flight
	TicketStatusProcessing TicketStatus = "PROCESSING"
	// TicketStatusSuccess stock reserved and order confirmed
	TicketStatusSuccess TicketStatus = "SUCCESS"
	// TicketStatusSoldOut reached the head after stock ran out
	TicketStatusSoldOut TicketStatus = "SOLD_OUT"
	// TicketStatusExpired evicted after the client stopped polling
	TicketStatusExpired TicketStatus = "EXPIRED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusQueued, TicketStatusProcessing,
		TicketStatusSuccess, TicketStatusSoldOut, TicketStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether s is a final state. Terminal tickets never
// change again and their results are retained for late polls.
func (s TicketStatus) Terminal() bool {
	switch s {
	case TicketStatusSuccess, TicketStatusSoldOut, TicketStatusExpired:
		return true
	}
	return false
}

// Ticket represents one user's admission attempt for one product.
// Tickets are authoritative in memory; terminal outcomes are also
// persisted through allocation logs for audit.
type Ticket struct {
	TicketID  string       `json:"ticket_id"`
	UserID    uint64       `json:"user_id"`
	ProductID uint64       `json:"product_id"`
	Status    TicketStatus `json:"status"`

	// EnqueueSeq position stamp, strictly increasing per product
	EnqueueSeq uint64 `json:"enqueue_seq"`
	// SuccessSeq order in which winners were admitted, 0 unless SUCCESS
	SuccessSeq uint64 `json:"success_seq,omitempty"`

	// OrderNo set once the order collaborator confirms, SUCCESS only
	OrderNo string `json:"order_no,omitempty"`

	CreatedAt       time.Time `json:"created_at"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	FinishedAt      time.Time `json:"finished_at,omitempty"`
}

// TicketView is the status payload returned to polling clients.
type TicketView struct {
	TicketID  string       `json:"ticket_id"`
	ProductID uint64       `json:"product_id"`
	Status    TicketStatus `json:"status"`
	// Position 1-based place in the queue, 0 when not QUEUED
	Position int    `json:"position"`
	OrderNo  string `json:"order_no,omitempty"`
}

// Winner is one entry of the per-product admission evidence.
type Winner struct {
	TicketID   string `json:"ticket_id"`
	UserID     uint64 `json:"user_id"`
	EnqueueSeq uint64 `json:"enqueue_seq"`
	SuccessSeq uint64 `json:"success_seq"`
	OrderNo    string `json:"order_no"`
}

package queue

import (
	"context"
	"errors"
)

// MessageQueue defines the interface for queue operations. The engine
// publishes allocation events on it; consumers persist them for audit.
type MessageQueue interface {
	// Publish publishes a message to the specified topic
	Publish(ctx context.Context, topic string, message []byte) error

	// Consume blocks until a message arrives on the topic or the context
	// is cancelled
	Consume(ctx context.Context, topic string) ([]byte, error)

	// Close closes the queue
	Close() error

	// Health checks the health of the queue
	Health() error
}

// Common errors
var (
	ErrQueueClosed    = errors.New("queue is closed")
	ErrPublishTimeout = errors.New("publish timeout")
)

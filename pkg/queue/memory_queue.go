package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue channel-backed queue implementation. One buffered channel
// per topic, scoped to a single process.
type MemoryQueue struct {
	topics map[string]chan []byte
	config *MemoryQueueConfig
	mu     sync.RWMutex
	closed bool
}

// MemoryQueueConfig memory queue configuration
type MemoryQueueConfig struct {
	BufferSize int           `json:"buffer_size"`
	Timeout    time.Duration `json:"timeout"`
}

// NewMemoryQueue creates a new memory queue instance
func NewMemoryQueue(config *MemoryQueueConfig) *MemoryQueue {
	if config == nil {
		config = &MemoryQueueConfig{
			BufferSize: 4096,
			Timeout:    30 * time.Second,
		}
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &MemoryQueue{
		topics: make(map[string]chan []byte),
		config: config,
	}
}

// topic returns the channel for a topic, creating it on first use.
func (mq *MemoryQueue) topic(name string) (chan []byte, error) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return nil, ErrQueueClosed
	}

	ch, exists := mq.topics[name]
	if !exists {
		ch = make(chan []byte, mq.config.BufferSize)
		mq.topics[name] = ch
	}
	return ch, nil
}

// Publish publishes a message to the queue
func (mq *MemoryQueue) Publish(ctx context.Context, topic string, message []byte) error {
	ch, err := mq.topic(topic)
	if err != nil {
		return err
	}

	select {
	case ch <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mq.config.Timeout):
		return ErrPublishTimeout
	}
}

// Consume blocks until a message is available on the topic
func (mq *MemoryQueue) Consume(ctx context.Context, topic string) ([]byte, error) {
	ch, err := mq.topic(topic)
	if err != nil {
		return nil, err
	}

	select {
	case message, ok := <-ch:
		if !ok {
			return nil, ErrQueueClosed
		}
		return message, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the queue
func (mq *MemoryQueue) Close() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return nil
	}
	mq.closed = true

	for _, ch := range mq.topics {
		close(ch)
	}
	mq.topics = make(map[string]chan []byte)

	return nil
}

// Health checks the health of the queue
func (mq *MemoryQueue) Health() error {
	mq.mu.RLock()
	defer mq.mu.RUnlock()

	if mq.closed {
		return ErrQueueClosed
	}

	return nil
}

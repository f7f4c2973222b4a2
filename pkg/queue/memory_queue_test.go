package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_PublishConsume(t *testing.T) {
	mq := NewMemoryQueue(nil)
	defer mq.Close()

	ctx := context.Background()
	require.NoError(t, mq.Publish(ctx, "allocations", []byte("t1")))
	require.NoError(t, mq.Publish(ctx, "allocations", []byte("t2")))

	msg, err := mq.Consume(ctx, "allocations")
	require.NoError(t, err)
	assert.Equal(t, []byte("t1"), msg)

	msg, err = mq.Consume(ctx, "allocations")
	require.NoError(t, err)
	assert.Equal(t, []byte("t2"), msg)
}

func TestMemoryQueue_ConsumeBlocksUntilPublish(t *testing.T) {
	mq := NewMemoryQueue(nil)
	defer mq.Close()

	got := make(chan []byte, 1)
	go func() {
		msg, err := mq.Consume(context.Background(), "allocations")
		if err == nil {
			got <- msg
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, mq.Publish(context.Background(), "allocations", []byte("late")))

	select {
	case msg := <-got:
		assert.Equal(t, []byte("late"), msg)
	case <-time.After(time.Second):
		t.Fatal("consumer never received the message")
	}
}

func TestMemoryQueue_ConsumeContextCancelled(t *testing.T) {
	mq := NewMemoryQueue(nil)
	defer mq.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mq.Consume(ctx, "empty")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueue_TopicsIsolated(t *testing.T) {
	mq := NewMemoryQueue(nil)
	defer mq.Close()

	ctx := context.Background()
	require.NoError(t, mq.Publish(ctx, "a", []byte("for-a")))

	readCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := mq.Consume(readCtx, "b")
	assert.Error(t, err)
}

func TestMemoryQueue_Closed(t *testing.T) {
	mq := NewMemoryQueue(nil)
	require.NoError(t, mq.Close())

	assert.ErrorIs(t, mq.Publish(context.Background(), "x", nil), ErrQueueClosed)
	assert.ErrorIs(t, mq.Health(), ErrQueueClosed)

	// double close is a no-op
	assert.NoError(t, mq.Close())
}

func TestMemoryQueue_PublishTimeout(t *testing.T) {
	mq := NewMemoryQueue(&MemoryQueueConfig{BufferSize: 1, Timeout: 20 * time.Millisecond})
	defer mq.Close()

	ctx := context.Background()
	require.NoError(t, mq.Publish(ctx, "full", []byte("1")))
	assert.ErrorIs(t, mq.Publish(ctx, "full", []byte("2")), ErrPublishTimeout)
}

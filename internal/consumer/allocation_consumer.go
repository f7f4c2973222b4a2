package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"flashsale/internal/model"
	"flashsale/internal/monitor"
	"flashsale/internal/repository"
	"flashsale/pkg/log"
	"flashsale/pkg/queue"
)

// AllocationConsumer drains allocation events into the audit log. The
// engine resolves tickets in memory; this consumer is what makes the
// outcomes durable.
type AllocationConsumer struct {
	queue   queue.MessageQueue
	repo    repository.AllocationLogRepository
	metrics *monitor.MetricsCollector

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAllocationConsumer creates an allocation consumer. metrics may be
// nil.
func NewAllocationConsumer(q queue.MessageQueue, repo repository.AllocationLogRepository,
	metrics *monitor.MetricsCollector) *AllocationConsumer {
	return &AllocationConsumer{
		queue:   q,
		repo:    repo,
		metrics: metrics,
	}
}

// Start launches the consume loop.
func (c *AllocationConsumer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
	log.Info("allocation consumer started")
}

// Stop shuts the consumer down and waits for the loop to exit.
func (c *AllocationConsumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	log.Info("allocation consumer stopped")
}

func (c *AllocationConsumer) run(ctx context.Context) {
	for {
		data, err := c.queue.Consume(ctx, model.TopicAllocation)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			log.WithError(err).Error("failed to consume allocation event")
			continue
		}
		c.handle(ctx, data)
	}
}

// handle persists one event. Records are keyed by ticket id, so a
// redelivered event is a harmless no-op.
func (c *AllocationConsumer) handle(ctx context.Context, data []byte) {
	var ev model.AllocationEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.WithError(err).Error("malformed allocation event dropped")
		return
	}

	entry := &model.AllocationLog{
		TicketID:   ev.TicketID,
		UserID:     ev.UserID,
		ProductID:  ev.ProductID,
		Outcome:    ev.Outcome,
		EnqueueSeq: ev.EnqueueSeq,
		SuccessSeq: ev.SuccessSeq,
		OrderNo:    ev.OrderNo,
	}

	c.metrics.RecordOutcome(ev.ProductID, string(ev.Outcome))

	if err := c.repo.Record(ctx, entry); err != nil {
		log.WithFields(map[string]interface{}{
			"ticket_id": ev.TicketID,
			"outcome":   ev.Outcome,
		}).WithError(err).Error("failed to record allocation outcome")
	}
}

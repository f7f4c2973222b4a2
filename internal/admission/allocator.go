package admission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"flashsale/internal/model"
	"flashsale/pkg/breaker"
	"flashsale/pkg/log"
)

// Confirmer turns a winning ticket into a durable order. Implementations
// must be idempotent per ticket id so confirmation retries are safe.
type Confirmer interface {
	Confirm(ctx context.Context, t *model.Ticket) (orderNo string, err error)
}

type allocatorConfig struct {
	confirmRetries       int
	confirmRetryInterval time.Duration
	confirmTimeout       time.Duration
}

// allocator drains one product's queue. It is the only writer of the
// PROCESSING state and of the stock counter, so every admission decision
// for a product is serialized here and the counter can never go below
// zero.
type allocator struct {
	productID uint64
	q         *productQueue
	store     *ticketStore
	confirmer Confirmer
	breaker   *breaker.CircuitBreaker
	publish   func(model.Ticket)
	cfg       allocatorConfig

	remaining  atomic.Int64
	soldOut    atomic.Bool
	successSeq uint64

	winnersMu sync.RWMutex
	winners   []model.Winner
}

func newAllocator(productID uint64, stock int, q *productQueue, store *ticketStore,
	confirmer Confirmer, publish func(model.Ticket), cfg allocatorConfig) *allocator {

	a := &allocator{
		productID: productID,
		q:         q,
		store:     store,
		confirmer: confirmer,
		publish:   publish,
		cfg:       cfg,
		breaker: breaker.NewCircuitBreaker("order-confirm", breaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts breaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
	a.remaining.Store(int64(stock))
	if stock <= 0 {
		a.soldOut.Store(true)
	}
	return a
}

// run drains the queue until the context is cancelled.
func (a *allocator) run(ctx context.Context) {
	for {
		w, err := a.q.PopWait(ctx)
		if err != nil {
			return
		}
		a.process(ctx, w)
	}
}

func (a *allocator) process(ctx context.Context, w waiter) {
	// Claim the head. Losing the race means the sweeper evicted the
	// ticket between pop and claim, nothing to do.
	if err := a.store.CAS(w.ticketID, model.TicketStatusQueued, model.TicketStatusProcessing); err != nil {
		return
	}

	if a.soldOut.Load() || a.remaining.Load() <= 0 {
		a.soldOut.Store(true)
		a.finalize(w, model.TicketStatusSoldOut, nil)
		return
	}

	// Reserve one unit. Only this goroutine moves the counter down, so
	// the check above guarantees it stays non-negative.
	a.remaining.Add(-1)

	t, ok := a.store.Get(w.ticketID)
	if !ok {
		a.remaining.Add(1)
		return
	}

	orderNo, err := a.confirm(ctx, &t)
	if err != nil {
		// Give the unit back and resolve the ticket conservatively. The
		// client sees a definitive loss instead of an order that may or
		// may not exist.
		a.remaining.Add(1)
		log.WithFields(map[string]interface{}{
			"ticket_id":  w.ticketID,
			"product_id": a.productID,
		}).WithError(err).Error("order confirmation failed, releasing reservation")
		a.finalize(w, model.TicketStatusSoldOut, nil)
		return
	}

	a.successSeq++
	seq := a.successSeq
	final, ferr := a.finalize(w, model.TicketStatusSuccess, func(t *model.Ticket) {
		t.SuccessSeq = seq
		t.OrderNo = orderNo
	})
	if ferr == nil {
		a.winnersMu.Lock()
		a.winners = append(a.winners, model.Winner{
			TicketID:   final.TicketID,
			UserID:     final.UserID,
			EnqueueSeq: final.EnqueueSeq,
			SuccessSeq: final.SuccessSeq,
			OrderNo:    final.OrderNo,
		})
		a.winnersMu.Unlock()
	}

	if a.remaining.Load() <= 0 {
		a.soldOut.Store(true)
	}
}

// confirm calls the order collaborator through the circuit breaker with
// bounded retries. It never runs while holding any store lock.
func (a *allocator) confirm(ctx context.Context, t *model.Ticket) (string, error) {
	var orderNo string
	var lastErr error

	attempts := a.cfg.confirmRetries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(a.cfg.confirmRetryInterval):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		err := a.breaker.Execute(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.confirmTimeout)
			defer cancel()

			no, cerr := a.confirmer.Confirm(callCtx, t)
			if cerr != nil {
				return cerr
			}
			orderNo = no
			return nil
		})
		if err == nil {
			return orderNo, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			break
		}
	}
	return "", lastErr
}

// finalize resolves the ticket and publishes the outcome. The sequence
// from the pop is stamped here because the gateway writes it after
// enqueueing and the allocator can win that race.
func (a *allocator) finalize(w waiter, to model.TicketStatus, mutate func(*model.Ticket)) (model.Ticket, error) {
	final, err := a.store.Finalize(w.ticketID, model.TicketStatusProcessing, to, func(t *model.Ticket) {
		if t.EnqueueSeq == 0 {
			t.EnqueueSeq = w.seq
		}
		if mutate != nil {
			mutate(t)
		}
	})
	if err != nil {
		return model.Ticket{}, err
	}
	if a.publish != nil {
		a.publish(final)
	}
	return final, nil
}

// Remaining returns the current unreserved stock.
func (a *allocator) Remaining() int64 {
	return a.remaining.Load()
}

// SoldOut reports whether the product has drained its stock.
func (a *allocator) SoldOut() bool {
	return a.soldOut.Load()
}

// Restock adds units and reopens allocation if it was drained.
func (a *allocator) Restock(delta int64) int64 {
	n := a.remaining.Add(delta)
	if n > 0 {
		a.soldOut.Store(false)
	}
	return n
}

// Winners returns admitted tickets in success order.
func (a *allocator) Winners() []model.Winner {
	a.winnersMu.RLock()
	defer a.winnersMu.RUnlock()
	out := make([]model.Winner, len(a.winners))
	copy(out, a.winners)
	return out
}

package admission

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"flashsale/internal/config"
	"flashsale/internal/model"
	"flashsale/pkg/log"
	"flashsale/pkg/queue"
	"flashsale/pkg/snowflake"
	"flashsale/pkg/utils"
)

// sale bundles the per-product queue and its allocator.
type sale struct {
	productID uint64
	q         *productQueue
	alloc     *allocator
	cancel    context.CancelFunc
}

// Engine is the admission gateway. It issues tickets, answers status
// polls, runs one allocator per open sale and sweeps out tickets whose
// clients stopped polling.
type Engine struct {
	cfg       config.FlashSaleConfig
	ids       *snowflake.IDGenerator
	events    queue.MessageQueue
	confirmer Confirmer
	store     *ticketStore

	mu    sync.RWMutex
	sales map[uint64]*sale

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an admission engine. The confirmer is called for
// every admitted ticket; events receives one message per terminal
// transition.
func NewEngine(cfg config.FlashSaleConfig, ids *snowflake.IDGenerator,
	events queue.MessageQueue, confirmer Confirmer) (*Engine, error) {

	store, err := newTicketStore(cfg.ResultRetention)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		ids:       ids,
		events:    events,
		confirmer: confirmer,
		store:     store,
		sales:     make(map[uint64]*sale),
	}, nil
}

// Start launches the expiry sweeper. Allocators start per OpenSale.
func (e *Engine) Start() {
	e.runCtx, e.cancel = context.WithCancel(context.Background())
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runSweeper(e.runCtx)
	}()
}

// Stop cancels the sweeper and all allocators and waits for them.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Lock()
	for _, s := range e.sales {
		if s.cancel != nil {
			s.cancel()
		}
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// OpenSale registers a product with its stock and starts its allocator.
func (e *Engine) OpenSale(productID uint64, stock int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.sales[productID]; exists {
		return utils.ErrSaleWindowOpen
	}

	q := newProductQueue()
	alloc := newAllocator(productID, stock, q, e.store, e.confirmer,
		e.publishTerminal, allocatorConfig{
			confirmRetries:       e.cfg.ConfirmRetries,
			confirmRetryInterval: e.cfg.ConfirmRetryInterval,
			confirmTimeout:       e.cfg.ConfirmTimeout,
		})

	parent := e.runCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	s := &sale{productID: productID, q: q, alloc: alloc, cancel: cancel}
	e.sales[productID] = s

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		alloc.run(ctx)
	}()

	log.WithFields(map[string]interface{}{
		"product_id": productID,
		"stock":      stock,
	}).Info("sale opened")
	return nil
}

// CloseSale stops the allocator and resolves everything still queued as
// SOLD_OUT so no client is left polling forever.
func (e *Engine) CloseSale(productID uint64) error {
	e.mu.Lock()
	s, ok := e.sales[productID]
	if ok {
		delete(e.sales, productID)
	}
	e.mu.Unlock()

	if !ok {
		return utils.ErrProductNotFound
	}
	s.cancel()

	for {
		w, popped := s.q.Pop()
		if !popped {
			break
		}
		if err := e.store.CAS(w.ticketID, model.TicketStatusQueued, model.TicketStatusProcessing); err != nil {
			continue
		}
		if final, err := e.store.Finalize(w.ticketID, model.TicketStatusProcessing,
			model.TicketStatusSoldOut, nil); err == nil {
			e.publishTerminal(final)
		}
	}

	log.WithField("product_id", productID).Info("sale closed")
	return nil
}

// Restock adds stock to an open sale.
func (e *Engine) Restock(productID uint64, delta int) (int64, error) {
	s, ok := e.sale(productID)
	if !ok {
		return 0, utils.ErrProductNotFound
	}
	n := s.alloc.Restock(int64(delta))
	// Wake the allocator in case tickets queued up while drained.
	select {
	case s.q.signal <- struct{}{}:
	default:
	}
	return n, nil
}

// joinAttempts bounds the retry loop below. Each retry needs another
// caller to have created or finalized this user's ticket in between.
const joinAttempts = 4

// Join issues a ticket for the user on the product. A user holding an
// active ticket for the same product gets that ticket back together
// with ErrAlreadyQueued rather than a second place in line.
func (e *Engine) Join(ctx context.Context, userID, productID uint64) (*model.JoinResponse, error) {
	s, ok := e.sale(productID)
	if !ok {
		return nil, utils.ErrProductNotFound
	}

	for attempt := 0; attempt < joinAttempts; attempt++ {
		if existingID, held := e.store.ActiveTicketFor(userID, productID); held {
			if t, found := e.store.Get(existingID); found {
				return &model.JoinResponse{
					TicketID: t.TicketID,
					Status:   t.Status,
					Position: s.q.Position(t.EnqueueSeq),
				}, utils.ErrAlreadyQueued
			}
		}

		now := time.Now()
		t := &model.Ticket{
			TicketID:        e.ids.NextTicketID(),
			UserID:          userID,
			ProductID:       productID,
			Status:          model.TicketStatusQueued,
			CreatedAt:       now,
			LastHeartbeatAt: now,
		}
		if err := e.store.Create(t); err != nil {
			// Lost a duplicate-join race, resolve through the index on
			// the next pass.
			continue
		}

		// Fast drain: once the sale is sold out there is nothing to wait
		// for, the ticket resolves immediately. It still draws a sequence
		// so the arrival order in the audit trail stays complete.
		if s.alloc.SoldOut() {
			e.store.SetEnqueueSeq(t.TicketID, s.q.ReserveSeq())
			e.store.CAS(t.TicketID, model.TicketStatusQueued, model.TicketStatusProcessing)
			final, err := e.store.Finalize(t.TicketID, model.TicketStatusProcessing,
				model.TicketStatusSoldOut, nil)
			if err != nil {
				return nil, err
			}
			e.publishTerminal(final)
			return &model.JoinResponse{TicketID: final.TicketID, Status: final.Status}, nil
		}

		seq := s.q.Enqueue(t.TicketID)
		e.store.SetEnqueueSeq(t.TicketID, seq)

		return &model.JoinResponse{
			TicketID: t.TicketID,
			Status:   model.TicketStatusQueued,
			Position: s.q.Position(seq),
		}, nil
	}

	return nil, utils.NewError(utils.CodeInternalError,
		"could not settle a ticket for the user, retry")
}

// Status answers a poll. Polling a live ticket refreshes its heartbeat;
// polling a terminal ticket is a pure read and always returns the same
// outcome until retention lapses.
func (e *Engine) Status(ctx context.Context, ticketID string) (*model.TicketView, error) {
	if !e.store.MightContain(ticketID) {
		return nil, utils.ErrTicketNotFound
	}

	if t, ok := e.store.Get(ticketID); ok {
		e.store.Touch(ticketID, time.Now())

		view := &model.TicketView{
			TicketID:  t.TicketID,
			ProductID: t.ProductID,
			Status:    t.Status,
		}
		if t.Status == model.TicketStatusQueued {
			if s, found := e.sale(t.ProductID); found {
				view.Position = s.q.Position(t.EnqueueSeq)
			}
		}
		return view, nil
	}

	if t, ok := e.store.GetResult(ticketID); ok {
		return &model.TicketView{
			TicketID:  t.TicketID,
			ProductID: t.ProductID,
			Status:    t.Status,
			OrderNo:   t.OrderNo,
		}, nil
	}

	return nil, utils.ErrTicketNotFound
}

// Winners returns the product's admitted tickets in success order.
func (e *Engine) Winners(productID uint64) ([]model.Winner, error) {
	s, ok := e.sale(productID)
	if !ok {
		return nil, utils.ErrProductNotFound
	}
	return s.alloc.Winners(), nil
}

// Remaining returns the unreserved stock of an open sale.
func (e *Engine) Remaining(productID uint64) (int64, error) {
	s, ok := e.sale(productID)
	if !ok {
		return 0, utils.ErrProductNotFound
	}
	return s.alloc.Remaining(), nil
}

// QueueDepth returns the number of tickets waiting on a product.
func (e *Engine) QueueDepth(productID uint64) (int, error) {
	s, ok := e.sale(productID)
	if !ok {
		return 0, utils.ErrProductNotFound
	}
	return s.q.Len(), nil
}

func (e *Engine) sale(productID uint64) (*sale, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sales[productID]
	return s, ok
}

// publishTerminal emits an allocation event for a resolved ticket.
func (e *Engine) publishTerminal(t model.Ticket) {
	if e.events == nil {
		return
	}

	ev := model.AllocationEvent{
		TicketID:   t.TicketID,
		UserID:     t.UserID,
		ProductID:  t.ProductID,
		Outcome:    t.Status,
		EnqueueSeq: t.EnqueueSeq,
		SuccessSeq: t.SuccessSeq,
		OrderNo:    t.OrderNo,
		OccurredAt: t.FinishedAt,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.events.Publish(ctx, model.TopicAllocation, data); err != nil {
		log.WithError(err).WithField("ticket_id", t.TicketID).
			Warn("failed to publish allocation event")
	}
}

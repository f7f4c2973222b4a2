package admission

import (
	"context"
	"time"

	"flashsale/internal/model"
	"flashsale/pkg/log"
)

// runSweeper evicts QUEUED tickets whose client stopped polling. It
// never touches PROCESSING tickets: those belong to the allocator, so a
// ticket can not expire in the middle of an admission decision.
func (e *Engine) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.sweep(now)
		}
	}
}

func (e *Engine) sweep(now time.Time) {
	deadline := now.Add(-(e.cfg.TicketTTL + e.cfg.Grace))

	for _, t := range e.store.StaleQueued(deadline) {
		// Finalize first. If the allocator claimed the ticket between the
		// scan and this call the CAS inside fails and the entry stays.
		final, err := e.store.Finalize(t.TicketID, model.TicketStatusQueued,
			model.TicketStatusExpired, nil)
		if err != nil {
			continue
		}

		if s, ok := e.sale(t.ProductID); ok {
			s.q.Remove(t.EnqueueSeq)
		}
		e.publishTerminal(final)

		log.WithFields(map[string]interface{}{
			"ticket_id":  t.TicketID,
			"product_id": t.ProductID,
		}).Debug("ticket expired")
	}
}

package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/bits-and-blooms/bloom/v3"

	"flashsale/internal/model"
	"flashsale/pkg/utils"
)

// estimated ticket volume for the bloom filter sizing
const (
	bloomCapacity      = 1_000_000
	bloomFalsePositive = 0.01
)

type userProduct struct {
	userID    uint64
	productID uint64
}

// ticketStore holds every live ticket in memory and retains terminal
// results in an evicting cache so late polls still resolve. A bloom
// filter over every id ever issued rejects lookups for ids that never
// existed without touching either structure.
type ticketStore struct {
	mu     sync.RWMutex
	active map[string]*model.Ticket
	byUser map[userProduct]string

	results *bigcache.BigCache
	issued  *bloom.BloomFilter
	bloomMu sync.RWMutex
}

// newTicketStore creates a store retaining terminal results for the
// given window.
func newTicketStore(resultRetention time.Duration) (*ticketStore, error) {
	cacheCfg := bigcache.DefaultConfig(resultRetention)
	cacheCfg.CleanWindow = time.Minute
	cacheCfg.Verbose = false

	results, err := bigcache.New(context.Background(), cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	return &ticketStore{
		active:  make(map[string]*model.Ticket),
		byUser:  make(map[userProduct]string),
		results: results,
		issued:  bloom.NewWithEstimates(bloomCapacity, bloomFalsePositive),
	}, nil
}

// MightContain reports whether ticketID could have been issued. False
// means definitely never issued.
func (s *ticketStore) MightContain(ticketID string) bool {
	s.bloomMu.RLock()
	defer s.bloomMu.RUnlock()
	return s.issued.TestString(ticketID)
}

// Create registers a new QUEUED ticket. Fails with ErrAlreadyQueued when
// the user already holds an active ticket for the product.
func (s *ticketStore) Create(t *model.Ticket) error {
	key := userProduct{userID: t.UserID, productID: t.ProductID}

	s.mu.Lock()
	if _, exists := s.byUser[key]; exists {
		s.mu.Unlock()
		return utils.ErrAlreadyQueued
	}
	s.active[t.TicketID] = t
	s.byUser[key] = t.TicketID
	s.mu.Unlock()

	s.bloomMu.Lock()
	s.issued.AddString(t.TicketID)
	s.bloomMu.Unlock()
	return nil
}

// SetEnqueueSeq stamps the queue sequence after the queue assigned it.
func (s *ticketStore) SetEnqueueSeq(ticketID string, seq uint64) {
	s.mu.Lock()
	if t, ok := s.active[ticketID]; ok {
		t.EnqueueSeq = seq
	}
	s.mu.Unlock()
}

// Get returns a copy of an active ticket.
func (s *ticketStore) Get(ticketID string) (model.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.active[ticketID]
	if !ok {
		return model.Ticket{}, false
	}
	return *t, true
}

// ActiveTicketFor returns the user's active ticket id for a product.
func (s *ticketStore) ActiveTicketFor(userID, productID uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUser[userProduct{userID: userID, productID: productID}]
	return id, ok
}

// CAS transitions an active ticket from one non-terminal state to
// another. It fails when the ticket is gone or not in the expected
// state, which is how concurrent claimers lose gracefully.
func (s *ticketStore) CAS(ticketID string, from, to model.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[ticketID]
	if !ok {
		return utils.ErrTicketNotFound
	}
	if t.Status != from {
		return fmt.Errorf("ticket %s is %s, not %s", ticketID, t.Status, from)
	}
	t.Status = to
	return nil
}

// Finalize moves an active ticket to a terminal state, removes it from
// the active set and retains the result. The mutate hook runs while the
// transition is held, letting callers stamp order numbers and sequence
// numbers atomically with the state change.
func (s *ticketStore) Finalize(ticketID string, from, to model.TicketStatus, mutate func(*model.Ticket)) (model.Ticket, error) {
	if !to.Terminal() {
		return model.Ticket{}, fmt.Errorf("finalize to non-terminal state %s", to)
	}

	s.mu.Lock()
	t, ok := s.active[ticketID]
	if !ok {
		s.mu.Unlock()
		return model.Ticket{}, utils.ErrTicketNotFound
	}
	if t.Status != from {
		s.mu.Unlock()
		return model.Ticket{}, fmt.Errorf("ticket %s is %s, not %s", ticketID, t.Status, from)
	}

	t.Status = to
	t.FinishedAt = time.Now()
	if mutate != nil {
		mutate(t)
	}
	final := *t

	delete(s.active, ticketID)
	delete(s.byUser, userProduct{userID: t.UserID, productID: t.ProductID})
	s.mu.Unlock()

	if data, err := json.Marshal(final); err == nil {
		// Retention cache failures only shorten how long a late poll
		// resolves; the outcome itself is already published.
		_ = s.results.Set(ticketID, data)
	}
	return final, nil
}

// GetResult returns a retained terminal ticket.
func (s *ticketStore) GetResult(ticketID string) (model.Ticket, bool) {
	data, err := s.results.Get(ticketID)
	if err != nil {
		return model.Ticket{}, false
	}
	var t model.Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return model.Ticket{}, false
	}
	return t, true
}

// Touch refreshes the heartbeat of an active ticket. Polling doubles as
// liveness, so every status read on a live ticket lands here.
func (s *ticketStore) Touch(ticketID string, now time.Time) {
	s.mu.Lock()
	if t, ok := s.active[ticketID]; ok {
		t.LastHeartbeatAt = now
	}
	s.mu.Unlock()
}

// StaleQueued returns copies of QUEUED tickets whose last heartbeat is
// before the deadline. PROCESSING tickets are allocator-owned and never
// reported here.
func (s *ticketStore) StaleQueued(deadline time.Time) []model.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []model.Ticket
	for _, t := range s.active {
		if t.Status == model.TicketStatusQueued && t.LastHeartbeatAt.Before(deadline) {
			stale = append(stale, *t)
		}
	}
	return stale
}

// ActiveCount returns the number of active tickets.
func (s *ticketStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Package payments holds the in-memory table of checkouts awaiting
// settlement. The table is created per process lifecycle and injected
// into its users; it is not persisted.
package payments

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

var ErrDuplicatePayment = errors.New("payment id already exists")

type idempotencyKey struct {
	buyerID int64
	key     string
}

// Store maps payment ids to pending payments. Every read returns a copy;
// mutations go through Create, Transition and Update under one lock.
type Store struct {
	mu       sync.RWMutex
	payments map[string]*models.PendingPayment
	byKey    map[idempotencyKey]string
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		payments: make(map[string]*models.PendingPayment),
		byKey:    make(map[idempotencyKey]string),
		now:      time.Now,
	}
}

// Create inserts p. When p carries an idempotency key already used by the
// same buyer, the existing record is returned with created=false.
func (s *Store) Create(p *models.PendingPayment) (models.PendingPayment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IdempotencyKey != "" {
		k := idempotencyKey{buyerID: p.BuyerID, key: p.IdempotencyKey}
		if id, ok := s.byKey[k]; ok {
			if existing, ok := s.payments[id]; ok {
				return existing.Clone(), false, nil
			}
		}
	}

	if _, ok := s.payments[p.ID]; ok {
		return models.PendingPayment{}, false, errors.Wrap(ErrDuplicatePayment, p.ID)
	}

	stored := p.Clone()
	s.payments[p.ID] = &stored
	if p.IdempotencyKey != "" {
		s.byKey[idempotencyKey{buyerID: p.BuyerID, key: p.IdempotencyKey}] = p.ID
	}
	return stored.Clone(), true, nil
}

// Get returns a copy of the payment.
func (s *Store) Get(id string) (models.PendingPayment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return models.PendingPayment{}, false
	}
	return p.Clone(), true
}

// FindByIdempotencyKey returns the payment a buyer created with key.
func (s *Store) FindByIdempotencyKey(buyerID int64, key string) (models.PendingPayment, bool) {
	if key == "" {
		return models.PendingPayment{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[idempotencyKey{buyerID: buyerID, key: key}]
	if !ok {
		return models.PendingPayment{}, false
	}
	p, ok := s.payments[id]
	if !ok {
		return models.PendingPayment{}, false
	}
	return p.Clone(), true
}

// Transition moves a payment from `from` to `to` if and only if it exists
// and is currently in `from`. Anything else yields ErrStaleReference.
func (s *Store) Transition(id string, from, to models.PaymentStatus, reason string) (models.PendingPayment, error) {
	if !from.CanTransitionTo(to) {
		return models.PendingPayment{}, errors.Errorf("illegal transition %s -> %s", from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return models.PendingPayment{}, errors.Wrapf(apperr.ErrStaleReference, "payment %s not found", id)
	}
	if p.Status != from {
		return p.Clone(), errors.Wrapf(apperr.ErrStaleReference, "payment %s is %s", id, p.Status)
	}

	p.Status = to
	p.UpdatedAt = s.now()
	if to == models.PaymentStatusFailed {
		p.FailureReason = reason
	}
	return p.Clone(), nil
}

// RecordOrders stores how many orders a paid payment produced.
func (s *Store) RecordOrders(id string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.payments[id]; ok {
		p.OrderCount = count
	}
}

// SweepResult reports what a sweep did.
type SweepResult struct {
	Removed int
	Stale   []string
}

// Sweep drops terminal payments whose last transition is older than
// retention. When pendingTTL > 0 it also returns the ids of pending
// payments older than the TTL so the caller can fail them; pending records
// are never removed here.
func (s *Store) Sweep(now time.Time, retention, pendingTTL time.Duration) SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res SweepResult
	for id, p := range s.payments {
		switch {
		case p.Status.IsTerminal() && now.Sub(p.UpdatedAt) > retention:
			delete(s.payments, id)
			if p.IdempotencyKey != "" {
				delete(s.byKey, idempotencyKey{buyerID: p.BuyerID, key: p.IdempotencyKey})
			}
			res.Removed++
		case p.Status == models.PaymentStatusPending && pendingTTL > 0 && now.Sub(p.CreatedAt) > pendingTTL:
			res.Stale = append(res.Stale, id)
		}
	}
	sort.Strings(res.Stale)
	return res
}

// Counts returns the number of payments per status.
func (s *Store) Counts() map[models.PaymentStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[models.PaymentStatus]int{
		models.PaymentStatusPending: 0,
		models.PaymentStatusPaid:    0,
		models.PaymentStatusFailed:  0,
	}
	for _, p := range s.payments {
		counts[p.Status]++
	}
	return counts
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}

// Package settlement schedules delayed payment confirmations on a bounded
// set of workers.
package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
)

// ErrSchedulerClosed is returned by Reserve after Shutdown. It matches
// apperr.ErrSettlementBusy.
var ErrSchedulerClosed = fmt.Errorf("%w: scheduler is shut down", apperr.ErrSettlementBusy)

// Job runs once the settlement delay has elapsed.
type Job func(ctx context.Context)

type Config struct {
	Delay          time.Duration
	Workers        int
	AcquireTimeout time.Duration
	ConfirmTimeout time.Duration
}

// Scheduler runs each job after Delay on one of Workers slots. A slot is
// taken by Reserve and held until the job returns, so callers learn about
// exhaustion before they commit any state.
type Scheduler struct {
	pool   *Pool
	cfg    Config
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewScheduler(cfg Config, logger *logging.Logger) *Scheduler {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pool:   NewPool(cfg.Workers),
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Reservation is a held worker slot. Exactly one of Start or Cancel must
// be called.
type Reservation struct {
	s    *Scheduler
	once sync.Once
}

// Reserve takes a worker slot, waiting at most AcquireTimeout.
// It returns apperr.ErrSettlementBusy when no slot frees up in time.
func (s *Scheduler) Reserve(ctx context.Context) (*Reservation, error) {
	if s.isClosed() {
		return nil, ErrSchedulerClosed
	}

	acquireCtx := ctx
	if s.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, s.cfg.AcquireTimeout)
		defer cancel()
	}

	if err := s.pool.Acquire(acquireCtx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("No settlement slot available", logging.Fields{
			"workers": s.pool.Cap(),
			"waited":  s.cfg.AcquireTimeout.String(),
		})
		return nil, errors.Wrap(apperr.ErrSettlementBusy, "reserve settlement slot")
	}

	return &Reservation{s: s}, nil
}

// Start hands the job to a worker goroutine that waits for the delay and
// then runs it. The slot is released when the job returns. If the
// scheduler was shut down after Reserve, the slot is released, the job is
// dropped and ErrSchedulerClosed is returned.
func (r *Reservation) Start(name string, job Job) error {
	var err error
	r.once.Do(func() {
		s := r.s

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			s.pool.Release()
			s.logger.Warn("Settlement dropped, scheduler closed", logging.Fields{"job": name})
			err = ErrSchedulerClosed
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.run(name, job)
	})
	return err
}

// Cancel returns the slot without running anything.
func (r *Reservation) Cancel() {
	r.once.Do(r.s.pool.Release)
}

func (s *Scheduler) run(name string, job Job) {
	defer s.wg.Done()
	defer s.pool.Release()

	if err := SleepOrDone(s.ctx, s.cfg.Delay); err != nil {
		s.logger.Info("Settlement canceled before confirmation", logging.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}

	// Confirmation runs on its own deadline; shutdown does not interrupt it.
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConfirmTimeout)
	defer cancel()

	job(ctx)
}

// InFlight returns the number of held slots.
func (s *Scheduler) InFlight() int {
	return s.pool.InUse()
}

func (s *Scheduler) Capacity() int {
	return s.pool.Cap()
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Shutdown stops accepting work, cancels waiting jobs and waits for
// running confirmations until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Settlement scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for settlement workers")
	}
}

package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/locks"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/payments"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/settlement"
)

const (
	publishTimeout     = 2 * time.Second
	reasonExpired      = "expired"
	reasonNotScheduled = "settlement unavailable"
)

// CheckoutRequest starts a payment for the buyer's current cart.
type CheckoutRequest struct {
	BuyerID        int64
	Role           models.Role
	AddressID      int64
	IdempotencyKey string
}

// CheckoutService orchestrates checkout, settlement and order
// materialization.
type CheckoutService struct {
	store     CheckoutStore
	payments  *payments.Store
	scheduler *settlement.Scheduler
	buyers    *locks.KeyedMutex
	cache     repository.OrderCache
	publisher EventPublisher
	metrics   *metrics.Metrics
	config    config.PaymentsConfig
	logger    *logging.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	store CheckoutStore,
	paymentStore *payments.Store,
	scheduler *settlement.Scheduler,
	buyers *locks.KeyedMutex,
	cache repository.OrderCache,
	publisher EventPublisher,
	m *metrics.Metrics,
	cfg config.PaymentsConfig,
) *CheckoutService {
	return &CheckoutService{
		store:     store,
		payments:  paymentStore,
		scheduler: scheduler,
		buyers:    buyers,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		config:    cfg,
		logger:    logging.NewLogger("checkout-service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StartCheckout validates the cart and address, records a pending payment
// carrying a snapshot of the cart lines and schedules its settlement. It
// never writes to the catalog store. Sellers cannot check out.
func (s *CheckoutService) StartCheckout(ctx context.Context, req CheckoutRequest) (*models.PendingPayment, error) {
	s.logger.Info("Starting checkout", logging.Fields{
		"buyer_id":   req.BuyerID,
		"address_id": req.AddressID,
	})

	if req.Role == models.RoleSeller {
		s.metrics.CheckoutResult(metrics.ResultRejected)
		return nil, errors.Wrap(apperr.ErrForbidden, "sellers cannot check out")
	}

	if existing, ok := s.payments.FindByIdempotencyKey(req.BuyerID, req.IdempotencyKey); ok {
		s.logger.Info("Checkout replayed", logging.Fields{"payment_id": existing.ID})
		s.metrics.CheckoutResult(metrics.ResultReplayed)
		return &existing, nil
	}

	owned, err := s.store.AddressBelongsTo(ctx, req.AddressID, req.BuyerID)
	if err != nil {
		return nil, err
	}
	if !owned {
		s.metrics.CheckoutResult(metrics.ResultRejected)
		return nil, apperr.ErrInvalidAddress
	}

	lines, err := s.store.CartLines(ctx, req.BuyerID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		s.metrics.CheckoutResult(metrics.ResultRejected)
		return nil, apperr.ErrEmptyCart
	}

	total := models.CartTotal(lines)

	reservation, err := s.scheduler.Reserve(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrSettlementBusy) {
			s.metrics.CheckoutResult(metrics.ResultBusy)
		}
		return nil, err
	}

	payment := models.NewPendingPayment(req.BuyerID, req.AddressID, total, req.IdempotencyKey, s.now())
	payment.Lines = models.NewPaymentLines(lines)
	stored, created, err := s.payments.Create(payment)
	if err != nil {
		reservation.Cancel()
		return nil, err
	}
	if !created {
		reservation.Cancel()
		s.metrics.CheckoutResult(metrics.ResultReplayed)
		return &stored, nil
	}

	paymentID := stored.ID
	err = reservation.Start(paymentID, func(ctx context.Context) {
		_ = s.ConfirmPayment(ctx, paymentID)
	})
	if err != nil {
		s.logger.Warn("Settlement not scheduled, failing payment", logging.Fields{
			"payment_id": paymentID,
			"error":      err.Error(),
		})
		if _, ferr := s.payments.Transition(paymentID, models.PaymentStatusPending, models.PaymentStatusFailed, reasonNotScheduled); ferr != nil {
			s.logger.Error("Failed to fail unscheduled payment", logging.Fields{
				"payment_id": paymentID,
				"error":      ferr.Error(),
			})
		}
		s.metrics.CheckoutResult(metrics.ResultBusy)
		return nil, err
	}

	s.metrics.CheckoutResult(metrics.ResultStarted)
	s.publish(ctx, models.EventPaymentPending, stored, nil)

	s.logger.Info("Checkout started", logging.Fields{
		"payment_id":   paymentID,
		"buyer_id":     req.BuyerID,
		"total_amount": total.String(),
		"line_count":   len(lines),
	})
	return &stored, nil
}

// ConfirmPayment flips a pending payment to paid and materializes its
// orders. Missing or already settled payments are a no-op, so repeated
// confirmations write orders at most once. A materialization failure
// leaves the payment paid without orders and is returned as a
// *apperr.TransactionError.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, paymentID string) error {
	payment, err := s.payments.Transition(paymentID, models.PaymentStatusPending, models.PaymentStatusPaid, "")
	if err != nil {
		if errors.Is(err, apperr.ErrStaleReference) {
			s.logger.Debug("Skipping stale settlement", logging.Fields{
				"payment_id": paymentID,
				"reason":     err.Error(),
			})
			s.metrics.SettlementOutcome(metrics.OutcomeStale)
			return nil
		}
		return err
	}

	s.metrics.SettlementOutcome(metrics.OutcomePaid)
	s.logger.Info("Payment confirmed", logging.Fields{
		"payment_id": paymentID,
		"buyer_id":   payment.BuyerID,
	})
	s.publish(ctx, models.EventPaymentPaid, payment, nil)

	return s.materialize(ctx, payment)
}

func (s *CheckoutService) materialize(ctx context.Context, payment models.PendingPayment) error {
	unlock := s.buyers.Lock(payment.BuyerID)
	orders, err := s.store.MaterializeOrders(ctx, repository.MaterializeRequest{
		PaymentID: payment.ID,
		BuyerID:   payment.BuyerID,
		AddressID: payment.AddressID,
		Lines:     payment.Lines,
	})
	unlock()

	if err != nil {
		s.metrics.MaterializationResult(metrics.ResultFailed)
		s.logger.Error("Order materialization failed, payment is paid without orders", logging.Fields{
			"payment_id": payment.ID,
			"buyer_id":   payment.BuyerID,
			"error":      err.Error(),
		})
		return &apperr.TransactionError{PaymentID: payment.ID, Err: err}
	}

	s.metrics.MaterializationResult(metrics.ResultSuccess)
	s.payments.RecordOrders(payment.ID, len(orders))

	if err := s.cache.InvalidateBuyer(ctx, payment.BuyerID); err != nil {
		s.logger.Warn("Failed to invalidate order cache", logging.Fields{
			"buyer_id": payment.BuyerID,
			"error":    err.Error(),
		})
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	s.publish(ctx, models.EventOrdersMaterialized, payment, ids)
	return nil
}

// FailPayment moves a pending payment to failed. Failed payments are never
// materialized. Missing or settled payments are a no-op.
func (s *CheckoutService) FailPayment(ctx context.Context, paymentID, reason string) error {
	payment, err := s.payments.Transition(paymentID, models.PaymentStatusPending, models.PaymentStatusFailed, reason)
	if err != nil {
		if errors.Is(err, apperr.ErrStaleReference) {
			s.metrics.SettlementOutcome(metrics.OutcomeStale)
			return nil
		}
		return err
	}

	s.metrics.SettlementOutcome(metrics.OutcomeFailed)
	s.logger.Info("Payment failed", logging.Fields{
		"payment_id": paymentID,
		"reason":     reason,
	})
	s.publish(ctx, models.EventPaymentFailed, payment, nil)
	return nil
}

// GetPaymentStatus returns the buyer's own payment. A payment owned by
// someone else is reported as not found.
func (s *CheckoutService) GetPaymentStatus(ctx context.Context, paymentID string, buyerID int64) (*models.PendingPayment, error) {
	payment, ok := s.payments.Get(paymentID)
	if !ok {
		return nil, errors.Wrapf(apperr.ErrNotFound, "payment %s", paymentID)
	}
	if payment.BuyerID != buyerID {
		s.logger.Warn("Payment queried by another buyer", logging.Fields{
			"payment_id": paymentID,
			"buyer_id":   buyerID,
		})
		return nil, errors.Wrapf(apperr.ErrNotFound, "payment %s", paymentID)
	}
	return &payment, nil
}

// SweepPayments drops old settled payments and, when a pending TTL is
// configured, fails pending payments that outlived it.
func (s *CheckoutService) SweepPayments(ctx context.Context) {
	res := s.payments.Sweep(s.now(), s.config.Retention, s.config.PendingTTL)

	for _, id := range res.Stale {
		if err := s.FailPayment(ctx, id, reasonExpired); err != nil {
			s.logger.Error("Failed to expire payment", logging.Fields{
				"payment_id": id,
				"error":      err.Error(),
			})
		}
	}

	if res.Removed > 0 || len(res.Stale) > 0 {
		s.logger.Info("Payment sweep finished", logging.Fields{
			"removed": res.Removed,
			"expired": len(res.Stale),
		})
	}
}

// RunSweeper calls SweepPayments every interval until ctx is done.
func (s *CheckoutService) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepPayments(ctx)
		}
	}
}

func (s *CheckoutService) publish(ctx context.Context, eventType models.PaymentEventType, payment models.PendingPayment, orderIDs []int64) {
	event := models.NewPaymentEvent(eventType, payment, s.now())
	event.OrderIDs = orderIDs

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish payment event", logging.Fields{
			"payment_id": payment.ID,
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

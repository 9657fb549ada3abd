package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentEventType names an outbound payment lifecycle event.
type PaymentEventType string

const (
	EventPaymentPending     PaymentEventType = "payment.pending"
	EventPaymentPaid        PaymentEventType = "payment.paid"
	EventPaymentFailed      PaymentEventType = "payment.failed"
	EventOrdersMaterialized PaymentEventType = "orders.materialized"
)

// PaymentEvent is published whenever a pending payment changes state or
// its orders are written.
type PaymentEvent struct {
	ID          string           `json:"id"`
	Type        PaymentEventType `json:"type"`
	PaymentID   string           `json:"payment_id"`
	BuyerID     int64            `json:"buyer_id"`
	Status      PaymentStatus    `json:"status"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	OrderIDs    []int64          `json:"order_ids,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewPaymentEvent snapshots p into an event of the given type.
func NewPaymentEvent(eventType PaymentEventType, p PendingPayment, now time.Time) *PaymentEvent {
	return &PaymentEvent{
		Type:        eventType,
		PaymentID:   p.ID,
		BuyerID:     p.BuyerID,
		Status:      p.Status,
		TotalAmount: p.TotalAmount,
		Reason:      p.FailureReason,
		Timestamp:   now,
	}
}

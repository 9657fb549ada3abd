package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a pending payment and of the
// orders it produces.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// CanTransitionTo reports whether s -> next is a legal move.
// Only pending may advance, and only to paid or failed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending && next.IsTerminal()
}

// PaymentLine is one cart line as it was priced at checkout. Orders are
// written from these lines, never from the cart at settlement time.
type PaymentLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l PaymentLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewPaymentLines snapshots cart lines.
func NewPaymentLines(cart []CartLine) []PaymentLine {
	lines := make([]PaymentLine, 0, len(cart))
	for _, c := range cart {
		lines = append(lines, PaymentLine{
			ProductID: c.ProductID,
			Name:      c.Name,
			Image:     c.Image,
			Quantity:  c.Quantity,
			UnitPrice: c.UnitPrice,
		})
	}
	return lines
}

// PendingPayment tracks one checkout from creation until settlement.
type PendingPayment struct {
	ID             string          `json:"payment_id"`
	BuyerID        int64           `json:"buyer_id"`
	Status         PaymentStatus   `json:"status"`
	AddressID      int64           `json:"address_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Lines          []PaymentLine   `json:"lines"`
	IdempotencyKey string          `json:"-"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	OrderCount     int             `json:"order_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no slices with p.
func (p PendingPayment) Clone() PendingPayment {
	if p.Lines != nil {
		p.Lines = append([]PaymentLine(nil), p.Lines...)
	}
	return p
}

// NewPaymentID returns a collision-resistant payment identifier.
func NewPaymentID() string {
	return "payment_" + uuid.NewString()
}

// NewPendingPayment builds a pending record for a checkout.
func NewPendingPayment(buyerID, addressID int64, total decimal.Decimal, idempotencyKey string, now time.Time) *PendingPayment {
	return &PendingPayment{
		ID:             NewPaymentID(),
		BuyerID:        buyerID,
		Status:         PaymentStatusPending,
		AddressID:      addressID,
		TotalAmount:    total,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

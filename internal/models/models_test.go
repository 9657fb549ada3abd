package models

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCartTotalIsExact(t *testing.T) {
	tests := []struct {
		name  string
		lines []CartLine
		want  string
	}{
		{
			name:  "empty",
			lines: nil,
			want:  "0",
		},
		{
			name: "binary float trap",
			lines: []CartLine{
				{UnitPrice: decimal.RequireFromString("0.10"), Quantity: 1},
				{UnitPrice: decimal.RequireFromString("0.20"), Quantity: 1},
			},
			want: "0.3",
		},
		{
			name: "quantities",
			lines: []CartLine{
				{UnitPrice: decimal.RequireFromString("19.99"), Quantity: 3},
				{UnitPrice: decimal.RequireFromString("0.01"), Quantity: 7},
			},
			want: "60.04",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CartTotal(tt.lines)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("CartTotal() = %s, want %s", got, want)
			}
		})
	}
}

func TestCartCount(t *testing.T) {
	lines := []CartLine{{Quantity: 2}, {Quantity: 5}}
	if got := CartCount(lines); got != 7 {
		t.Errorf("CartCount() = %d, want 7", got)
	}
}

func TestNewCartNeverNil(t *testing.T) {
	cart := NewCart(nil)
	if cart.Lines == nil {
		t.Error("Lines should be an empty slice")
	}
	if !cart.Total.IsZero() || cart.Count != 0 {
		t.Errorf("empty cart = %+v", cart)
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPending, PaymentStatusPaid, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusPending, false},
		{PaymentStatusPaid, PaymentStatusFailed, false},
		{PaymentStatusPaid, PaymentStatusPending, false},
		{PaymentStatusFailed, PaymentStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPendingPayment(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPendingPayment(7, 3, decimal.RequireFromString("42.50"), "key-1", now)

	if !strings.HasPrefix(p.ID, "payment_") {
		t.Errorf("ID = %q, want payment_ prefix", p.ID)
	}
	if p.Status != PaymentStatusPending {
		t.Errorf("Status = %q, want pending", p.Status)
	}
	if !p.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, now)
	}

	other := NewPendingPayment(7, 3, decimal.Zero, "", now)
	if other.ID == p.ID {
		t.Error("payment ids collided")
	}
}

func TestOrderLineTotal(t *testing.T) {
	o := Order{UnitPrice: decimal.RequireFromString("9.95"), Quantity: 3}
	if got := o.LineTotal(); !got.Equal(decimal.RequireFromString("29.85")) {
		t.Errorf("LineTotal() = %s, want 29.85", got)
	}
}

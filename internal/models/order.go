package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one materialized purchase line. UnitPrice is the price the
// checkout charged and is never recalculated.
type Order struct {
	ID            int64           `json:"order_id"`
	BuyerID       int64           `json:"buyer_id"`
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	Image         string          `json:"image,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	AddressID     *int64          `json:"address_id"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentID     string          `json:"payment_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LineTotal returns UnitPrice × Quantity.
func (o Order) LineTotal() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// SellerSales summarizes a seller's sold lines.
type SellerSales struct {
	Orders   []Order         `json:"orders"`
	Earnings decimal.Decimal `json:"earnings"`
}

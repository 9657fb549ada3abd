package models

import "github.com/shopspring/decimal"

// CartLine is a cart row joined with the live product data.
type CartLine struct {
	ID        int64           `json:"id" db:"id"`
	BuyerID   int64           `json:"buyer_id" db:"user_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"price"`
	Name      string          `json:"name" db:"name"`
	Image     string          `json:"image" db:"image"`
}

// LineTotal returns UnitPrice × Quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartTotal sums the line totals exactly.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// CartCount sums quantities across lines.
func CartCount(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Cart is the buyer-facing cart view.
type Cart struct {
	Lines []CartLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// NewCart builds a view from lines.
func NewCart(lines []CartLine) Cart {
	if lines == nil {
		lines = []CartLine{}
	}
	return Cart{Lines: lines, Total: CartTotal(lines), Count: CartCount(lines)}
}

// CartAction adjusts the quantity of a cart line by one.
type CartAction string

const (
	CartActionIncrease CartAction = "increase"
	CartActionDecrease CartAction = "decrease"
)

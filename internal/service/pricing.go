package service

import (
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

// SumOrders returns Σ unit_price × quantity over orders.
func SumOrders(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.LineTotal())
	}
	return total
}

// SellerEarnings sums the line totals of paid orders only.
func SellerEarnings(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.PaymentStatus == models.PaymentStatusPaid {
			total = total.Add(o.LineTotal())
		}
	}
	return total
}

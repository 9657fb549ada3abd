package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository"
)

// CheckoutStore is the part of the catalog and cart store checkout needs.
type CheckoutStore interface {
	CartLines(ctx context.Context, buyerID int64) ([]models.CartLine, error)
	AddressBelongsTo(ctx context.Context, addressID, userID int64) (bool, error)
	MaterializeOrders(ctx context.Context, req repository.MaterializeRequest) ([]models.Order, error)
}

type CartStore interface {
	CartLines(ctx context.Context, buyerID int64) ([]models.CartLine, error)
	AddToCart(ctx context.Context, buyerID, productID int64) (int, error)
	ChangeCartQuantity(ctx context.Context, buyerID, itemID int64, delta int) (models.CartLine, error)
	RemoveCartItem(ctx context.Context, buyerID, itemID int64) error
	CartCount(ctx context.Context, buyerID int64) (int, error)
}

type AddressStore interface {
	SaveAddress(ctx context.Context, userID int64, req *models.SaveAddressRequest) (*models.Address, error)
	SetDefaultAddress(ctx context.Context, userID, addressID int64) error
	ListAddresses(ctx context.Context, userID int64) ([]models.Address, error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, sellerID int64, req *models.CreateProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, sellerID int64) ([]models.Product, error)
	UpdateProductPrice(ctx context.Context, id, sellerID int64, price decimal.Decimal) error
	UpdateProduct(ctx context.Context, id, sellerID int64, req *models.CreateProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id, sellerID int64) error
	BuyersOfProduct(ctx context.Context, productID int64) ([]int64, error)
}

type OrderStore interface {
	OrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error)
	OrdersBySeller(ctx context.Context, sellerID int64) ([]models.Order, error)
}

// EventPublisher emits payment lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.PaymentEvent) error
}

var (
	_ CheckoutStore = (*repository.Store)(nil)
	_ CartStore     = (*repository.Store)(nil)
	_ AddressStore  = (*repository.Store)(nil)
	_ ProductStore  = (*repository.Store)(nil)
	_ OrderStore    = (*repository.Store)(nil)
)

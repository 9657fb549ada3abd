package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/locks"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

// CartService manages a buyer's cart. Mutations share the per-buyer lock
// with order materialization.
type CartService struct {
	store  CartStore
	buyers *locks.KeyedMutex
	logger *logging.Logger
}

func NewCartService(store CartStore, buyers *locks.KeyedMutex) *CartService {
	return &CartService{
		store:  store,
		buyers: buyers,
		logger: logging.NewLogger("cart-service"),
	}
}

// View returns the cart with its exact total.
func (s *CartService) View(ctx context.Context, buyerID int64) (models.Cart, error) {
	lines, err := s.store.CartLines(ctx, buyerID)
	if err != nil {
		return models.Cart{}, err
	}
	return models.NewCart(lines), nil
}

// Add puts a product in the cart or bumps its quantity and returns the new
// quantity.
func (s *CartService) Add(ctx context.Context, buyerID, productID int64) (int, error) {
	if err := ValidateID("product_id", productID); err != nil {
		return 0, err
	}

	unlock := s.buyers.Lock(buyerID)
	defer unlock()

	qty, err := s.store.AddToCart(ctx, buyerID, productID)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Added to cart", logging.Fields{
		"buyer_id":   buyerID,
		"product_id": productID,
		"quantity":   qty,
	})
	return qty, nil
}

// Adjust increases or decreases a line by one. Decreasing never goes
// below one.
func (s *CartService) Adjust(ctx context.Context, buyerID, itemID int64, action models.CartAction) (models.CartLine, error) {
	if err := ValidateCartAction(action); err != nil {
		return models.CartLine{}, err
	}

	delta := 1
	if action == models.CartActionDecrease {
		delta = -1
	}

	unlock := s.buyers.Lock(buyerID)
	defer unlock()

	return s.store.ChangeCartQuantity(ctx, buyerID, itemID, delta)
}

// Remove deletes a line from the buyer's cart.
func (s *CartService) Remove(ctx context.Context, buyerID, itemID int64) error {
	unlock := s.buyers.Lock(buyerID)
	defer unlock()

	if err := s.store.RemoveCartItem(ctx, buyerID, itemID); err != nil {
		return err
	}

	s.logger.Debug("Removed cart item", logging.Fields{
		"buyer_id": buyerID,
		"item_id":  itemID,
	})
	return nil
}

// Count returns the sum of quantities in the cart.
func (s *CartService) Count(ctx context.Context, buyerID int64) (int, error) {
	return s.store.CartCount(ctx, buyerID)
}

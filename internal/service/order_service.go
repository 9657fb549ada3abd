package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository"
)

// OrderService serves order history for buyers and sales for sellers.
type OrderService struct {
	store        OrderStore
	cache        repository.OrderCache
	cacheEnabled bool
	logger       *logging.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(store OrderStore, cache repository.OrderCache, cacheEnabled bool) *OrderService {
	return &OrderService{
		store:        store,
		cache:        cache,
		cacheEnabled: cacheEnabled,
		logger:       logging.NewLogger("order-service"),
	}
}

// History returns the buyer's orders, newest first.
func (s *OrderService) History(ctx context.Context, buyerID int64) ([]models.Order, error) {
	s.logger.Debug("Getting order history", logging.Fields{"buyer_id": buyerID})

	// Check cache first. The generation is read before the store so a
	// concurrent invalidation outdates what we write back.
	cacheable := false
	var generation int64
	if s.cacheEnabled {
		orders, gen, err := s.cache.GetByBuyer(ctx, buyerID)
		if err == nil && orders != nil {
			s.logger.Debug("Order history found in cache", logging.Fields{"buyer_id": buyerID})
			return orders, nil
		}
		cacheable = err == nil
		generation = gen
	}

	orders, err := s.store.OrdersByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}

	if cacheable {
		if err := s.cache.SetByBuyer(ctx, buyerID, generation, orders); err != nil {
			s.logger.Warn("Failed to cache order history", logging.Fields{
				"buyer_id": buyerID,
				"error":    err.Error(),
			})
		}
	}

	return orders, nil
}

// SellerSales returns orders for the seller's products and the earnings of
// the paid ones.
func (s *OrderService) SellerSales(ctx context.Context, who models.Identity) (*models.SellerSales, error) {
	if !who.IsSeller() {
		return nil, apperr.ErrForbidden
	}

	orders, err := s.store.OrdersBySeller(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}

	return &models.SellerSales{
		Orders:   orders,
		Earnings: SellerEarnings(orders),
	}, nil
}

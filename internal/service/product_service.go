package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository"
)

// ProductService manages the catalog. Writes are reserved for sellers and
// limited to their own listings. Order history joins the live product row,
// so edits and deletes invalidate the cached history of every buyer who
// ordered the product.
type ProductService struct {
	store  ProductStore
	cache  repository.OrderCache
	logger *logging.Logger
}

func NewProductService(store ProductStore, cache repository.OrderCache) *ProductService {
	return &ProductService{
		store:  store,
		cache:  cache,
		logger: logging.NewLogger("product-service"),
	}
}

func (s *ProductService) Create(ctx context.Context, who models.Identity, req *models.CreateProductRequest) (*models.Product, error) {
	if !who.IsSeller() {
		return nil, apperr.ErrForbidden
	}
	if err := ValidateCreateProductRequest(req); err != nil {
		return nil, err
	}

	product, err := s.store.CreateProduct(ctx, who.UserID, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product created", logging.Fields{
		"product_id": product.ID,
		"seller_id":  who.UserID,
		"price":      product.Price.String(),
	})
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// List returns all products, or only the seller's own when the caller is a
// seller and mine is set.
func (s *ProductService) List(ctx context.Context, who models.Identity, mine bool) ([]models.Product, error) {
	var sellerID int64
	if mine && who.IsSeller() {
		sellerID = who.UserID
	}

	products, err := s.store.ListProducts(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// ChangePrice updates the price of future checkouts. Orders already
// materialized keep the price they captured.
func (s *ProductService) ChangePrice(ctx context.Context, who models.Identity, id int64, price decimal.Decimal) error {
	if !who.IsSeller() {
		return apperr.ErrForbidden
	}
	if err := ValidatePrice(price); err != nil {
		return err
	}

	if err := s.store.UpdateProductPrice(ctx, id, who.UserID, price); err != nil {
		return err
	}

	s.logger.Info("Product price changed", logging.Fields{
		"product_id": id,
		"seller_id":  who.UserID,
		"price":      price.String(),
	})
	return nil
}

// Update replaces name, description, price, image and category.
func (s *ProductService) Update(ctx context.Context, who models.Identity, id int64, req *models.CreateProductRequest) (*models.Product, error) {
	if !who.IsSeller() {
		return nil, apperr.ErrForbidden
	}
	if err := ValidateCreateProductRequest(req); err != nil {
		return nil, err
	}

	product, err := s.store.UpdateProduct(ctx, id, who.UserID, req)
	if err != nil {
		return nil, err
	}

	buyers, err := s.store.BuyersOfProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id, buyers)

	s.logger.Info("Product updated", logging.Fields{
		"product_id": id,
		"seller_id":  who.UserID,
		"price":      product.Price.String(),
	})
	return product, nil
}

// Delete removes the listing together with its cart lines and orders.
func (s *ProductService) Delete(ctx context.Context, who models.Identity, id int64) error {
	if !who.IsSeller() {
		return apperr.ErrForbidden
	}

	// Buyers are collected first; the cascade removes their orders.
	buyers, err := s.store.BuyersOfProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteProduct(ctx, id, who.UserID); err != nil {
		return err
	}
	s.invalidate(ctx, id, buyers)

	s.logger.Info("Product deleted", logging.Fields{
		"product_id": id,
		"seller_id":  who.UserID,
	})
	return nil
}

func (s *ProductService) invalidate(ctx context.Context, productID int64, buyers []int64) {
	for _, buyerID := range buyers {
		if err := s.cache.InvalidateBuyer(ctx, buyerID); err != nil {
			s.logger.Warn("Failed to invalidate order cache", logging.Fields{
				"product_id": productID,
				"buyer_id":   buyerID,
				"error":      err.Error(),
			})
		}
	}
}

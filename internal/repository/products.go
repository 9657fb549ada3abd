package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

const productColumns = `id, seller_id, name, description, price, image, category, created_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.SellerID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Image,
		&p.Category,
		timestamp{&p.CreatedAt},
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct stores a new listing for sellerID.
func (s *Store) CreateProduct(ctx context.Context, sellerID int64, req *models.CreateProductRequest) (*models.Product, error) {
	p := &models.Product{
		SellerID:    sellerID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
		CreatedAt:   s.now(),
	}

	id, err := s.insertID(ctx, s.db,
		`INSERT INTO products (seller_id, name, description, price, image, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.SellerID, p.Name, p.Description, money(p.Price), p.Image, p.Category, p.CreatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to create product", logging.Fields{
			"seller_id": sellerID,
			"error":     err.Error(),
		})
		return nil, errors.Wrap(err, "insert product")
	}
	p.ID = id

	s.logger.Info("Product created", logging.Fields{
		"product_id": p.ID,
		"seller_id":  sellerID,
	})
	return p, nil
}

// GetProduct returns a product or apperr.ErrNotFound.
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(apperr.ErrNotFound, "product %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select product %d", id)
	}
	return p, nil
}

// ListProducts returns products newest first. sellerID 0 lists every seller.
func (s *Store) ListProducts(ctx context.Context, sellerID int64) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []interface{}
	if sellerID != 0 {
		query += ` WHERE seller_id = ?`
		args = append(args, sellerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, *p)
	}
	return products, errors.Wrap(rows.Err(), "iterate products")
}

// UpdateProductPrice changes the listed price. Existing orders keep the
// price they captured.
func (s *Store) UpdateProductPrice(ctx context.Context, id, sellerID int64, price decimal.Decimal) error {
	if err := s.checkOwner(ctx, id, sellerID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE products SET price = ? WHERE id = ?`), money(price), id)
	if err != nil {
		return errors.Wrapf(err, "update price of product %d", id)
	}

	s.logger.Info("Product price changed", logging.Fields{
		"product_id": id,
		"price":      price.String(),
	})
	return nil
}

// UpdateProduct replaces the listing's editable fields and returns the
// stored product.
func (s *Store) UpdateProduct(ctx context.Context, id, sellerID int64, req *models.CreateProductRequest) (*models.Product, error) {
	if err := s.checkOwner(ctx, id, sellerID); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE products
		SET name = ?, description = ?, price = ?, image = ?, category = ?
		WHERE id = ?`),
		req.Name, req.Description, money(req.Price), req.Image, req.Category, id,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "update product %d", id)
	}

	s.logger.Info("Product updated", logging.Fields{
		"product_id": id,
		"price":      req.Price.String(),
	})
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a listing. Cart lines and orders referencing it
// are removed by the foreign key cascade.
func (s *Store) DeleteProduct(ctx context.Context, id, sellerID int64) error {
	if err := s.checkOwner(ctx, id, sellerID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM products WHERE id = ?`), id); err != nil {
		return errors.Wrapf(err, "delete product %d", id)
	}

	s.logger.Info("Product deleted", logging.Fields{"product_id": id})
	return nil
}

func (s *Store) checkOwner(ctx context.Context, id, sellerID int64) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if p.SellerID != sellerID {
		return errors.Wrapf(apperr.ErrForbidden, "product %d belongs to another seller", id)
	}
	return nil
}

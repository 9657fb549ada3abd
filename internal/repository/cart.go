package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

const cartLinesQuery = `
	SELECT c.id, c.user_id, c.product_id, c.quantity, p.price, p.name, p.image
	FROM cart c
	JOIN products p ON p.id = c.product_id
	WHERE c.user_id = ?
	ORDER BY c.id`

// CartLines returns the buyer's cart joined with live product data.
func (s *Store) CartLines(ctx context.Context, buyerID int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	if err := s.db.SelectContext(ctx, &lines, s.db.Rebind(cartLinesQuery), buyerID); err != nil {
		return nil, errors.Wrapf(err, "select cart of buyer %d", buyerID)
	}
	return lines, nil
}

// AddToCart inserts the product or increments the quantity of the
// existing line. It returns the resulting quantity.
func (s *Store) AddToCart(ctx context.Context, buyerID, productID int64) (int, error) {
	var quantity int

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int64
		err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT id FROM products WHERE id = ?`), productID)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(apperr.ErrNotFound, "product %d", productID)
		}
		if err != nil {
			return errors.Wrap(err, "check product")
		}

		var line struct {
			ID       int64 `db:"id"`
			Quantity int   `db:"quantity"`
		}
		err = tx.GetContext(ctx, &line,
			tx.Rebind(`SELECT id, quantity FROM cart WHERE user_id = ? AND product_id = ?`+s.forUpdate()),
			buyerID, productID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			quantity = 1
			_, err = s.insertID(ctx, tx,
				`INSERT INTO cart (user_id, product_id, quantity, created_at) VALUES (?, ?, ?, ?)`,
				buyerID, productID, quantity, s.now())
			return errors.Wrap(err, "insert cart line")
		case err != nil:
			return errors.Wrap(err, "select cart line")
		}

		quantity = line.Quantity + 1
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE cart SET quantity = ? WHERE id = ?`), quantity, line.ID)
		return errors.Wrap(err, "increment cart line")
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Cart line added", logging.Fields{
		"buyer_id":   buyerID,
		"product_id": productID,
		"quantity":   quantity,
	})
	return quantity, nil
}

// ChangeCartQuantity adds delta to a line's quantity. A result below one
// leaves the line unchanged. The updated line is returned.
func (s *Store) ChangeCartQuantity(ctx context.Context, buyerID, itemID int64, delta int) (models.CartLine, error) {
	var line models.CartLine

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &line, tx.Rebind(`
			SELECT c.id, c.user_id, c.product_id, c.quantity, p.price, p.name, p.image
			FROM cart c
			JOIN products p ON p.id = c.product_id
			WHERE c.id = ? AND c.user_id = ?`+s.forUpdate()), itemID, buyerID)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(apperr.ErrNotFound, "cart item %d", itemID)
		}
		if err != nil {
			return errors.Wrap(err, "select cart line")
		}

		next := line.Quantity + delta
		if next < 1 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE cart SET quantity = ? WHERE id = ?`), next, itemID); err != nil {
			return errors.Wrap(err, "update cart quantity")
		}
		line.Quantity = next
		return nil
	})
	return line, err
}

// RemoveCartItem deletes one of the buyer's cart lines.
func (s *Store) RemoveCartItem(ctx context.Context, buyerID, itemID int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM cart WHERE id = ? AND user_id = ?`), itemID, buyerID)
	if err != nil {
		return errors.Wrapf(err, "delete cart item %d", itemID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrapf(apperr.ErrNotFound, "cart item %d", itemID)
	}
	return nil
}

// CartCount returns the sum of quantities in the buyer's cart.
func (s *Store) CartCount(ctx context.Context, buyerID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		s.db.Rebind(`SELECT COALESCE(SUM(quantity), 0) FROM cart WHERE user_id = ?`), buyerID)
	if err != nil {
		return 0, errors.Wrapf(err, "count cart of buyer %d", buyerID)
	}
	return count, nil
}

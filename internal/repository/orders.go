package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

// MaterializeRequest identifies the paid checkout and the lines it charged.
type MaterializeRequest struct {
	PaymentID string
	BuyerID   int64
	AddressID int64
	Lines     []models.PaymentLine
}

// MaterializeOrders turns the checkout lines into paid orders in one
// transaction: insert one order per line at its checkout price and
// quantity, then take those quantities out of the buyer's cart. Cart lines
// added or raised after checkout keep the remainder. Either all of it
// commits or none.
func (s *Store) MaterializeOrders(ctx context.Context, req MaterializeRequest) ([]models.Order, error) {
	s.logger.Debug("Materializing orders", logging.Fields{
		"payment_id": req.PaymentID,
		"buyer_id":   req.BuyerID,
		"line_count": len(req.Lines),
	})

	var orders []models.Order

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var locked []int64
		if err := tx.SelectContext(ctx, &locked,
			tx.Rebind(`SELECT id FROM cart WHERE user_id = ?`+s.forUpdate()), req.BuyerID); err != nil {
			return errors.Wrapf(err, "lock cart of buyer %d", req.BuyerID)
		}

		createdAt := s.now()
		addressID := req.AddressID
		orders = make([]models.Order, 0, len(req.Lines))

		for _, line := range req.Lines {
			order := models.Order{
				BuyerID:       req.BuyerID,
				ProductID:     line.ProductID,
				ProductName:   line.Name,
				Image:         line.Image,
				Quantity:      line.Quantity,
				UnitPrice:     line.UnitPrice,
				AddressID:     &addressID,
				PaymentStatus: models.PaymentStatusPaid,
				PaymentID:     req.PaymentID,
				CreatedAt:     createdAt,
			}

			id, err := s.insertID(ctx, tx,
				`INSERT INTO orders (user_id, product_id, quantity, price, address_id, payment_status, payment_id, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				order.BuyerID, order.ProductID, order.Quantity, money(order.UnitPrice),
				addressID, string(order.PaymentStatus), order.PaymentID, order.CreatedAt)
			if err != nil {
				return errors.Wrapf(err, "insert order for product %d", line.ProductID)
			}
			order.ID = id
			orders = append(orders, order)

			if err := takeFromCart(ctx, tx, req.BuyerID, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Orders materialized", logging.Fields{
		"payment_id":  req.PaymentID,
		"buyer_id":    req.BuyerID,
		"order_count": len(orders),
	})
	return orders, nil
}

// takeFromCart removes the checked-out quantity from the buyer's cart line,
// deleting the line when nothing is left.
func takeFromCart(ctx context.Context, tx *sqlx.Tx, buyerID int64, line models.PaymentLine) error {
	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`DELETE FROM cart WHERE user_id = ? AND product_id = ? AND quantity <= ?`),
		buyerID, line.ProductID, line.Quantity); err != nil {
		return errors.Wrapf(err, "remove product %d from cart", line.ProductID)
	}
	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE cart SET quantity = quantity - ? WHERE user_id = ? AND product_id = ? AND quantity > ?`),
		line.Quantity, buyerID, line.ProductID, line.Quantity); err != nil {
		return errors.Wrapf(err, "reduce product %d in cart", line.ProductID)
	}
	return nil
}

// BuyersOfProduct returns the buyers holding orders for the product.
func (s *Store) BuyersOfProduct(ctx context.Context, productID int64) ([]int64, error) {
	buyers := []int64{}
	err := s.db.SelectContext(ctx, &buyers,
		s.db.Rebind(`SELECT DISTINCT user_id FROM orders WHERE product_id = ? ORDER BY user_id`), productID)
	if err != nil {
		return nil, errors.Wrapf(err, "list buyers of product %d", productID)
	}
	return buyers, nil
}

const orderHistoryColumns = `
	o.id, o.user_id, o.product_id, p.name, p.image, o.quantity, o.price,
	o.address_id, o.payment_status, o.payment_id, o.created_at`

func scanOrders(rows *sqlx.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(
			&o.ID,
			&o.BuyerID,
			&o.ProductID,
			&o.ProductName,
			&o.Image,
			&o.Quantity,
			&o.UnitPrice,
			&o.AddressID,
			&o.PaymentStatus,
			&o.PaymentID,
			timestamp{&o.CreatedAt},
		); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, o)
	}
	return orders, errors.Wrap(rows.Err(), "iterate orders")
}

// OrdersByBuyer returns the buyer's orders newest first.
func (s *Store) OrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(`
		SELECT`+orderHistoryColumns+`
		FROM orders o
		JOIN products p ON p.id = o.product_id
		WHERE o.user_id = ?
		ORDER BY o.created_at DESC, o.id DESC`), buyerID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of buyer %d", buyerID)
	}
	return scanOrders(rows)
}

// OrdersBySeller returns orders for the seller's products newest first.
func (s *Store) OrdersBySeller(ctx context.Context, sellerID int64) ([]models.Order, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(`
		SELECT`+orderHistoryColumns+`
		FROM orders o
		JOIN products p ON p.id = o.product_id
		WHERE p.seller_id = ?
		ORDER BY o.created_at DESC, o.id DESC`), sellerID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of seller %d", sellerID)
	}
	return scanOrders(rows)
}

// OrdersByPayment returns the orders a payment produced.
func (s *Store) OrdersByPayment(ctx context.Context, paymentID string) ([]models.Order, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(`
		SELECT`+orderHistoryColumns+`
		FROM orders o
		JOIN products p ON p.id = o.product_id
		WHERE o.payment_id = ?
		ORDER BY o.id`), paymentID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of payment %s", paymentID)
	}
	return scanOrders(rows)
}

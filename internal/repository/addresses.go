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

// SaveAddress stores a new address. A default address, or the first one
// a user saves, clears the default flag on the user's other addresses.
func (s *Store) SaveAddress(ctx context.Context, userID int64, req *models.SaveAddressRequest) (*models.Address, error) {
	addr := &models.Address{
		UserID:    userID,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Pincode:   req.Pincode,
		IsDefault: req.IsDefault,
		CreatedAt: s.now(),
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing int
		if err := tx.GetContext(ctx, &existing,
			tx.Rebind(`SELECT COUNT(*) FROM addresses WHERE user_id = ?`), userID); err != nil {
			return errors.Wrap(err, "count addresses")
		}
		if existing == 0 {
			addr.IsDefault = true
		}

		if addr.IsDefault {
			if _, err := tx.ExecContext(ctx,
				tx.Rebind(`UPDATE addresses SET is_default = ? WHERE user_id = ?`), false, userID); err != nil {
				return errors.Wrap(err, "clear default address")
			}
		}

		id, err := s.insertID(ctx, tx,
			`INSERT INTO addresses (user_id, full_name, phone, address, city, state, pincode, is_default, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			addr.UserID, addr.FullName, addr.Phone, addr.Address, addr.City, addr.State, addr.Pincode,
			addr.IsDefault, addr.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert address")
		}
		addr.ID = id
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to save address", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Address saved", logging.Fields{
		"address_id": addr.ID,
		"user_id":    userID,
		"is_default": addr.IsDefault,
	})
	return addr, nil
}

// SetDefaultAddress marks addressID as the user's only default.
func (s *Store) SetDefaultAddress(ctx context.Context, userID, addressID int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		owned, err := s.addressBelongsTo(ctx, tx, addressID, userID)
		if err != nil {
			return err
		}
		if !owned {
			return errors.Wrapf(apperr.ErrNotFound, "address %d", addressID)
		}

		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE addresses SET is_default = ? WHERE user_id = ?`), false, userID); err != nil {
			return errors.Wrap(err, "clear default address")
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE addresses SET is_default = ? WHERE id = ?`), true, addressID); err != nil {
			return errors.Wrap(err, "set default address")
		}
		return nil
	})
}

// ListAddresses returns the user's addresses, default first.
func (s *Store) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(`
		SELECT id, user_id, full_name, phone, address, city, state, pincode, is_default, created_at
		FROM addresses
		WHERE user_id = ?
		ORDER BY is_default DESC, created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.Address,
			&a.City, &a.State, &a.Pincode, &a.IsDefault, timestamp{&a.CreatedAt},
		); err != nil {
			return nil, errors.Wrap(err, "scan address")
		}
		addresses = append(addresses, a)
	}
	return addresses, errors.Wrap(rows.Err(), "iterate addresses")
}

// AddressBelongsTo reports whether addressID exists and is owned by userID.
func (s *Store) AddressBelongsTo(ctx context.Context, addressID, userID int64) (bool, error) {
	return s.addressBelongsTo(ctx, s.db, addressID, userID)
}

func (s *Store) addressBelongsTo(ctx context.Context, q sqlx.QueryerContext, addressID, userID int64) (bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id,
		s.db.Rebind(`SELECT id FROM addresses WHERE id = ? AND user_id = ?`), addressID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "check address %d", addressID)
	}
	return true, nil
}

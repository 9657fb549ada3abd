package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

type AddressService struct {
	store  AddressStore
	logger *logging.Logger
}

func NewAddressService(store AddressStore) *AddressService {
	return &AddressService{
		store:  store,
		logger: logging.NewLogger("address-service"),
	}
}

func (s *AddressService) Save(ctx context.Context, userID int64, req *models.SaveAddressRequest) (*models.Address, error) {
	if err := ValidateSaveAddressRequest(req); err != nil {
		return nil, err
	}

	addr, err := s.store.SaveAddress(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Address saved", logging.Fields{
		"user_id":    userID,
		"address_id": addr.ID,
		"is_default": addr.IsDefault,
	})
	return addr, nil
}

func (s *AddressService) SetDefault(ctx context.Context, userID, addressID int64) error {
	if err := ValidateID("address_id", addressID); err != nil {
		return err
	}
	return s.store.SetDefaultAddress(ctx, userID, addressID)
}

// List returns the user's addresses, default first.
func (s *AddressService) List(ctx context.Context, userID int64) ([]models.Address, error) {
	addrs, err := s.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	if addrs == nil {
		addrs = []models.Address{}
	}
	return addrs, nil
}

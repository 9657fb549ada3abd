package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

var maxPrice = decimal.RequireFromString("99999999.99")

// ValidateCreateProductRequest validates a new listing.
func ValidateCreateProductRequest(req *models.CreateProductRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apperr.NewValidationError("name", "name is required")
	}
	if len(req.Name) > 100 {
		return apperr.NewValidationError("name", "name too long (max 100 characters)")
	}
	if len(req.Category) > 50 {
		return apperr.NewValidationError("category", "category too long (max 50 characters)")
	}
	if len(req.Image) > 255 {
		return apperr.NewValidationError("image", "image reference too long (max 255 characters)")
	}
	req.Description = SanitizeText(req.Description)
	return ValidatePrice(req.Price)
}

// ValidatePrice accepts positive amounts with at most two decimals that
// fit DECIMAL(10,2).
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperr.NewValidationError("price", "price must be positive")
	}
	if !price.Equal(price.Truncate(2)) {
		return apperr.NewValidationError("price", "price cannot have more than two decimals")
	}
	if price.GreaterThan(maxPrice) {
		return apperr.NewValidationError("price", "price too large")
	}
	return nil
}

// ValidateSaveAddressRequest validates an address book entry.
func ValidateSaveAddressRequest(req *models.SaveAddressRequest) error {
	fields := []struct {
		name  string
		value *string
		max   int
	}{
		{"full_name", &req.FullName, 100},
		{"phone", &req.Phone, 15},
		{"address", &req.Address, 1000},
		{"city", &req.City, 50},
		{"state", &req.State, 50},
		{"pincode", &req.Pincode, 10},
	}

	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return apperr.NewValidationError(f.name, f.name+" is required")
		}
		if len(*f.value) > f.max {
			return apperr.NewValidationError(f.name, f.name+" is too long")
		}
	}
	return nil
}

// ValidateCartAction validates a quantity adjustment.
func ValidateCartAction(action models.CartAction) error {
	switch action {
	case models.CartActionIncrease, models.CartActionDecrease:
		return nil
	default:
		return apperr.NewValidationError("action", "action must be increase or decrease")
	}
}

// ValidateID rejects non-positive identifiers.
func ValidateID(field string, id int64) error {
	if id <= 0 {
		return apperr.NewValidationError(field, field+" must be positive")
	}
	return nil
}

// SanitizeText escapes markup in free text and bounds its length.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, "\"", "&quot;")
	text = strings.TrimSpace(text)

	if len(text) > 1000 {
		text = text[:1000]
	}
	return text
}

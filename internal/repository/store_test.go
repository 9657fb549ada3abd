package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository/repotest"
)

const (
	sellerID = int64(100)
	buyerID  = int64(1)
)

func createProduct(t *testing.T, s *repository.Store, name, price string) *models.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), sellerID, &models.CreateProductRequest{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "books",
	})
	require.NoError(t, err)
	return p
}

func saveAddress(t *testing.T, s *repository.Store, userID int64, isDefault bool) *models.Address {
	t.Helper()
	a, err := s.SaveAddress(context.Background(), userID, &models.SaveAddressRequest{
		FullName:  "Ada Buyer",
		Phone:     "5550100",
		Address:   "1 Main St",
		City:      "Springfield",
		State:     "IL",
		Pincode:   "62701",
		IsDefault: isDefault,
	})
	require.NoError(t, err)
	return a
}

func TestProducts(t *testing.T) {
	ctx := context.Background()
	s, _ := repotest.NewStore(t)

	p := createProduct(t, s, "Go in Action", "39.99")
	assert.NotZero(t, p.ID)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go in Action", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("39.99")))
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.GetProduct(ctx, 9999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	createProduct(t, s, "The Go Programming Language", "45.00")
	all, err := s.ListProducts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "The Go Programming Language", all[0].Name, "newest first")

	err = s.UpdateProductPrice(ctx, p.ID, sellerID+1, decimal.RequireFromString("1.00"))
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	require.NoError(t, s.UpdateProductPrice(ctx, p.ID, sellerID, decimal.RequireFromString("29.50")))
	got, err = s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("29.50")))

	require.NoError(t, s.DeleteProduct(ctx, p.ID, sellerID))
	_, err = s.GetProduct(ctx, p.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCart(t *testing.T) {
	ctx := context.Background()
	s, _ := repotest.NewStore(t)

	book := createProduct(t, s, "Book", "10.00")
	pen := createProduct(t, s, "Pen", "1.25")

	qty, err := s.AddToCart(ctx, buyerID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	qty, err = s.AddToCart(ctx, buyerID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, qty, "adding an existing product increments")

	_, err = s.AddToCart(ctx, buyerID, pen.ID)
	require.NoError(t, err)

	_, err = s.AddToCart(ctx, buyerID, 9999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	lines, err := s.CartLines(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Book", lines[0].Name)
	assert.True(t, models.CartTotal(lines).Equal(decimal.RequireFromString("21.25")))

	count, err := s.CartCount(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	penLine := lines[1]
	line, err := s.ChangeCartQuantity(ctx, buyerID, penLine.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity, "quantity never drops below one")

	line, err = s.ChangeCartQuantity(ctx, buyerID, penLine.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)

	_, err = s.ChangeCartQuantity(ctx, buyerID+1, penLine.ID, 1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "another buyer's line is invisible")

	err = s.RemoveCartItem(ctx, buyerID+1, penLine.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	require.NoError(t, s.RemoveCartItem(ctx, buyerID, penLine.ID))
	count, err = s.CartCount(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddresses(t *testing.T) {
	ctx := context.Background()
	s, _ := repotest.NewStore(t)

	first := saveAddress(t, s, buyerID, false)
	assert.True(t, first.IsDefault, "first address becomes default")

	second := saveAddress(t, s, buyerID, true)
	assert.True(t, second.IsDefault)

	list, err := s.ListAddresses(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "default first")
	assert.False(t, list[1].IsDefault, "only one default")

	require.NoError(t, s.SetDefaultAddress(ctx, buyerID, first.ID))
	list, err = s.ListAddresses(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	err = s.SetDefaultAddress(ctx, buyerID+1, first.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	owned, err := s.AddressBelongsTo(ctx, first.ID, buyerID)
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = s.AddressBelongsTo(ctx, first.ID, buyerID+1)
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = s.AddressBelongsTo(ctx, 9999, buyerID)
	require.NoError(t, err)
	assert.False(t, owned)
}

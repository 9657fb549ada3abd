package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/service"
)

type checkoutRequest struct {
	AddressID int64 `json:"address_id"`
}

// Checkout handles POST /api/v1/checkout
// The payment settles in the background; clients poll GetPayment.
func (h *Handlers) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	who := identity(c)
	payment, err := h.checkout.StartCheckout(c.Request.Context(), service.CheckoutRequest{
		BuyerID:        who.UserID,
		Role:           who.Role,
		AddressID:      req.AddressID,
		IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"payment_id":   payment.ID,
		"status":       payment.Status,
		"total_amount": payment.TotalAmount,
	})
}

// GetPayment handles GET /api/v1/payments/:id
func (h *Handlers) GetPayment(c *gin.Context) {
	payment, err := h.checkout.GetPaymentStatus(c.Request.Context(), c.Param("id"), identity(c).UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid payment session"})
			return
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
}

type adjustCartRequest struct {
	Action models.CartAction `json:"action"`
}

// GetCart handles GET /api/v1/cart
func (h *Handlers) GetCart(c *gin.Context) {
	cart, err := h.cart.View(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// AddToCart handles POST /api/v1/cart/items
func (h *Handlers) AddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	qty, err := h.cart.Add(c.Request.Context(), identity(c).UserID, req.ProductID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": req.ProductID,
		"quantity":   qty,
	})
}

// AdjustCartItem handles PATCH /api/v1/cart/items/:id
func (h *Handlers) AdjustCartItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req adjustCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	line, err := h.cart.Adjust(c.Request.Context(), identity(c).UserID, itemID, req.Action)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, line)
}

// RemoveCartItem handles DELETE /api/v1/cart/items/:id
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.cart.Remove(c.Request.Context(), identity(c).UserID, itemID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CartCount handles GET /api/v1/cart/count
func (h *Handlers) CartCount(c *gin.Context) {
	count, err := h.cart.Count(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

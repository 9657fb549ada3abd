package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListOrders handles GET /api/v1/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	orders, err := h.orders.History(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// SellerOrders handles GET /api/v1/seller/orders
func (h *Handlers) SellerOrders(c *gin.Context) {
	sales, err := h.orders.SellerSales(c.Request.Context(), identity(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sales)
}

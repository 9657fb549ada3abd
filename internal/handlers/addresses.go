package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

// ListAddresses handles GET /api/v1/addresses
func (h *Handlers) ListAddresses(c *gin.Context) {
	addrs, err := h.addresses.List(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addrs})
}

// SaveAddress handles POST /api/v1/addresses
func (h *Handlers) SaveAddress(c *gin.Context) {
	var req models.SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	addr, err := h.addresses.Save(c.Request.Context(), identity(c).UserID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, addr)
}

// SetDefaultAddress handles POST /api/v1/addresses/:id/default
func (h *Handlers) SetDefaultAddress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.addresses.SetDefault(c.Request.Context(), identity(c).UserID, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "is_default": true})
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/middleware"
)

// RegisterRoutes mounts the authenticated API on api. The caller is
// expected to have installed middleware.Identity on the group.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/products", h.ListProducts)
	api.POST("/products", h.CreateProduct)
	api.PUT("/products/:id", h.UpdateProduct)
	api.PATCH("/products/:id/price", h.ChangePrice)
	api.DELETE("/products/:id", h.DeleteProduct)

	api.GET("/cart", h.GetCart)
	api.GET("/cart/count", h.CartCount)
	api.POST("/cart/items", h.AddToCart)
	api.PATCH("/cart/items/:id", h.AdjustCartItem)
	api.DELETE("/cart/items/:id", h.RemoveCartItem)

	api.GET("/addresses", h.ListAddresses)
	api.POST("/addresses", h.SaveAddress)
	api.POST("/addresses/:id/default", h.SetDefaultAddress)

	api.POST("/checkout", middleware.IdempotencyKey(), h.Checkout)
	api.GET("/payments/:id", h.GetPayment)

	api.GET("/orders", h.ListOrders)
	api.GET("/seller/orders", h.SellerOrders)
}

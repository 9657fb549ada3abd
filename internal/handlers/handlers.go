package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/service"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the marketplace service.
type Handlers struct {
	products  *service.ProductService
	cart      *service.CartService
	addresses *service.AddressService
	checkout  *service.CheckoutService
	orders    *service.OrderService
	db        Pinger
	config    *config.Config
	logger    *logging.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	products *service.ProductService,
	cart *service.CartService,
	addresses *service.AddressService,
	checkout *service.CheckoutService,
	orders *service.OrderService,
	db Pinger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		products:  products,
		cart:      cart,
		addresses: addresses,
		checkout:  checkout,
		orders:    orders,
		db:        db,
		config:    cfg,
		logger:    logging.NewLogger("handlers"),
	}
}

func identity(c *gin.Context) models.Identity {
	who, _ := middleware.CurrentIdentity(c)
	return who
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// handleError writes the response for err. Internal details never reach
// the client.
func (h *Handlers) handleError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{
			"error": verr.Message,
			"field": verr.Field,
		})
		return
	}

	switch status {
	case http.StatusNotFound:
		c.JSON(status, gin.H{"error": "not found"})
	case http.StatusForbidden:
		c.JSON(status, gin.H{"error": "forbidden"})
	case http.StatusServiceUnavailable:
		c.JSON(status, gin.H{"error": "checkout is busy, retry later"})
	case http.StatusGatewayTimeout:
		c.JSON(status, gin.H{"error": "request timed out"})
	case http.StatusBadRequest:
		c.JSON(status, gin.H{"error": "request canceled"})
	default:
		h.logger.Error("Request failed", logging.Fields{
			"path":  c.FullPath(),
			"kind":  apperr.Kind(err),
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// Package middleware holds the gin middleware of the marketplace API.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

const (
	HeaderUserID         = "X-User-ID"
	HeaderUserRole       = "X-User-Role"
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	ContextUserID    = "user_id"
	ContextUserRole  = "user_role"
	ContextRequestID = "request_id"

	maxIdempotencyKeyLen = 128
)

// Identity resolves the acting user forwarded by the session layer.
// Requests without a valid user id are rejected with 401.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		role := models.Role(c.GetHeader(HeaderUserRole))
		switch role {
		case "":
			role = models.RoleBuyer
		case models.RoleBuyer, models.RoleSeller:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, role)
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by Identity.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := userID.(int64)
	if !ok {
		return models.Identity{}, false
	}
	role, _ := c.Get(ContextUserRole)
	r, _ := role.(models.Role)
	return models.Identity{UserID: id, Role: r}, true
}

// IdempotencyKey rejects malformed Idempotency-Key headers. A missing key
// is allowed.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key != "" && !validIdempotencyKey(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid Idempotency-Key"})
			return
		}
		c.Next()
	}
}

func validIdempotencyKey(key string) bool {
	if len(key) > maxIdempotencyKeyLen {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// RequestLogger tags each request with an id and logs it when done.
func RequestLogger() gin.HandlerFunc {
	logger := logging.NewLogger("http")

	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()

		fields := logging.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"bytes":      c.Writer.Size(),
			"duration":   time.Since(start).String(),
		}
		if userID, ok := c.Get(ContextUserID); ok {
			fields["user_id"] = userID
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("Request failed", fields)
		default:
			logger.Info("Request handled", fields)
		}
	}
}

// Metrics records request counts and latency by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// Timeout bounds the request context.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

const (
	buyerOrdersPrefix     = "buyer_orders:"
	buyerGenerationPrefix = "buyer_orders_gen:"
	defaultCacheTTL       = 5 * time.Minute
)

var _ OrderCache = (*RedisOrderCache)(nil)

// RedisOrderCache implements OrderCache using Redis.
type RedisOrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisOrderCache creates a new Redis-based order history cache.
func NewRedisOrderCache(cfg config.RedisConfig) *RedisOrderCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisOrderCache(client, cfg.TTL)
}

func newRedisOrderCache(client *redis.Client, ttl time.Duration) *RedisOrderCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisOrderCache{
		client: client,
		ttl:    ttl,
		logger: logging.NewLogger("order-cache"),
	}
}

func buyerGenerationKey(buyerID int64) string {
	return buyerGenerationPrefix + strconv.FormatInt(buyerID, 10)
}

func buyerOrdersKey(buyerID, generation int64) string {
	return buyerOrdersPrefix + strconv.FormatInt(buyerID, 10) + ":" + strconv.FormatInt(generation, 10)
}

func (c *RedisOrderCache) generation(ctx context.Context, buyerID int64) (int64, error) {
	gen, err := c.client.Get(ctx, buyerGenerationKey(buyerID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// GetByBuyer returns the history cached for the buyer's current
// generation, or nil on a miss.
func (c *RedisOrderCache) GetByBuyer(ctx context.Context, buyerID int64) ([]models.Order, int64, error) {
	gen, err := c.generation(ctx, buyerID)
	if err != nil {
		c.logger.Error("Cache generation error", logging.Fields{
			"buyer_id": buyerID,
			"error":    err.Error(),
		})
		return nil, 0, err
	}

	data, err := c.client.Get(ctx, buyerOrdersKey(buyerID, gen)).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", logging.Fields{"buyer_id": buyerID, "generation": gen})
		return nil, gen, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{
			"buyer_id": buyerID,
			"error":    err.Error(),
		})
		return nil, gen, err
	}

	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, gen, err
	}

	c.logger.Debug("Cache hit", logging.Fields{"buyer_id": buyerID, "generation": gen})
	return orders, gen, nil
}

// SetByBuyer caches the buyer's history under generation. Entries for an
// outdated generation are never read back and expire with the TTL.
func (c *RedisOrderCache) SetByBuyer(ctx context.Context, buyerID, generation int64, orders []models.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, buyerOrdersKey(buyerID, generation), data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{
			"buyer_id": buyerID,
			"error":    err.Error(),
		})
		return err
	}
	return nil
}

// InvalidateBuyer moves the buyer to a new generation.
func (c *RedisOrderCache) InvalidateBuyer(ctx context.Context, buyerID int64) error {
	return c.client.Incr(ctx, buyerGenerationKey(buyerID)).Err()
}

// Ping checks the Redis connection.
func (c *RedisOrderCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisOrderCache) Close() error {
	return c.client.Close()
}

// NoopOrderCache disables history caching.
type NoopOrderCache struct{}

var _ OrderCache = NoopOrderCache{}

func (NoopOrderCache) GetByBuyer(context.Context, int64) ([]models.Order, int64, error) {
	return nil, 0, nil
}

func (NoopOrderCache) SetByBuyer(context.Context, int64, int64, []models.Order) error { return nil }

func (NoopOrderCache) InvalidateBuyer(context.Context, int64) error { return nil }

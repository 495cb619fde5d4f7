package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"restaurant-ledger/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_snapshot.lua
var setSnapshotScript string

type Client struct {
	rdb            *redis.Client
	snapshotScript *redis.Script
	snapshotTTL    time.Duration
}

// NewClient creates a new Redis client with Lua scripts loaded. Snapshot
// hashes expire snapshotTTL after their last write; zero keeps them.
func NewClient(addr, password string, db int, snapshotTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb, snapshotTTL), nil
}

// NewFromRedis wraps an existing connection.
func NewFromRedis(rdb *redis.Client, snapshotTTL time.Duration) *Client {
	return &Client{
		rdb:            rdb,
		snapshotScript: redis.NewScript(setSnapshotScript),
		snapshotTTL:    snapshotTTL,
	}
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func productKey(productID int64) string {
	return fmt.Sprintf("ledger:product:%d", productID)
}

func dishKey(dishID int64) string {
	return fmt.Sprintf("ledger:dish:%d", dishID)
}

func requestKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// setSnapshot writes fields unless a newer version is already stored.
func (c *Client) setSnapshot(ctx context.Context, key string, version time.Time, fields ...interface{}) error {
	args := append([]interface{}{version.UnixMicro(), c.snapshotTTL.Milliseconds()}, fields...)
	if _, err := c.snapshotScript.Run(ctx, c.rdb, []string{key}, args...).Result(); err != nil {
		return fmt.Errorf("snapshot script failed: %w", err)
	}
	return nil
}

// SetProductSnapshot stores a product's stock figures
func (c *Client) SetProductSnapshot(ctx context.Context, snap models.ProductSnapshot, version time.Time) error {
	return c.setSnapshot(ctx, productKey(snap.ProductID), version,
		"quantity", snap.Quantity,
		"reserved", snap.ReservedQuantity,
		"available", snap.Available,
	)
}

// GetAvailable returns the cached available quantity of a product
func (c *Client) GetAvailable(ctx context.Context, productID int64) (float64, bool, error) {
	val, err := c.rdb.HGet(ctx, productKey(productID), "available").Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	available, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bad cached quantity for product %d: %w", productID, err)
	}
	return available, true, nil
}

// SetPortions stores a dish's portion counter
func (c *Client) SetPortions(ctx context.Context, dishID int64, portions int, version time.Time) error {
	return c.setSnapshot(ctx, dishKey(dishID), version, "portions", portions)
}

// GetPortions returns the cached portion counter of a dish
func (c *Client) GetPortions(ctx context.Context, dishID int64) (int, bool, error) {
	portions, err := c.rdb.HGet(ctx, dishKey(dishID), "portions").Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return portions, true, nil
}

// InvalidateProduct drops a product's cached figures
func (c *Client) InvalidateProduct(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, productKey(productID)).Err()
}

// InvalidateDish drops a dish's cached portion counter
func (c *Client) InvalidateDish(ctx context.Context, dishID int64) error {
	return c.rdb.Del(ctx, dishKey(dishID)).Err()
}

// ClaimRequest marks an idempotency key as taken; false means it already was
func (c *Client) ClaimRequest(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, requestKey(key), time.Now().Unix(), ttl).Result()
}

// ForgetRequest frees an idempotency key so the request can be retried
func (c *Client) ForgetRequest(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, requestKey(key)).Err()
}

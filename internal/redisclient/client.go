package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_item.lua
var reserveItemScript string

//go:embed scripts/release_item.lua
var releaseItemScript string

type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
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

	return &Client{
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveItemScript),
		releaseScript: redis.NewScript(releaseItemScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func holdKey(itemID int64) string {
	return fmt.Sprintf("hold:item:%d", itemID)
}

// HoldItem atomically takes a checkout hold on an item for a buyer.
// The TTL mirrors the database reservation window; expiry in Redis is
// automatic. Returns false when another buyer holds the item.
func (c *Client) HoldItem(ctx context.Context, itemID, buyerID int64, ttl time.Duration) (bool, error) {
	result, err := c.reserveScript.Run(ctx, c.rdb,
		[]string{holdKey(itemID)},
		strconv.FormatInt(buyerID, 10), int(ttl.Seconds())).Result()
	if err != nil {
		return false, fmt.Errorf("reserve item script failed: %w", err)
	}

	success, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return success == 1, nil
}

// ReleaseHold drops a buyer's hold if they still own it
func (c *Client) ReleaseHold(ctx context.Context, itemID, buyerID int64) error {
	_, err := c.releaseScript.Run(ctx, c.rdb,
		[]string{holdKey(itemID)},
		strconv.FormatInt(buyerID, 10)).Result()
	if err != nil {
		return fmt.Errorf("release item script failed: %w", err)
	}
	return nil
}

// HoldOwner returns the buyer currently holding an item, 0 if none
func (c *Client) HoldOwner(ctx context.Context, itemID int64) (int64, error) {
	val, err := c.rdb.Get(ctx, holdKey(itemID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// CacheListing stores a rendered listing payload with a short TTL
func (c *Client) CacheListing(ctx context.Context, itemID int64, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("listing:%d", itemID), payload, ttl).Err()
}

// GetCachedListing fetches a cached listing payload; nil when absent
func (c *Client) GetCachedListing(ctx context.Context, itemID int64) ([]byte, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("listing:%d", itemID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

// InvalidateListing drops a cached listing after a write
func (c *Client) InvalidateListing(ctx context.Context, itemID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("listing:%d", itemID)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// CheckIdempotencyKey checks if an idempotency key exists
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

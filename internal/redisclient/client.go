package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client mirrors live product snapshots in Redis. The mirror is refreshed
// after every committed stock mutation and serves the fast path for cart
// stock pre-checks and the broadcast payload assembly; the database keeps
// the authoritative quantity.
type Client struct {
	rdb *redis.Client
}

const productKeyPrefix = "product:"

// snapshotTTL bounds staleness if a refresh is ever missed.
const snapshotTTL = 24 * time.Hour

// NewClient creates a new Redis client.
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func productKey(productID int64) string {
	return fmt.Sprintf("%s%d", productKeyPrefix, productID)
}

// SetProductSnapshot stores the current product state.
func (c *Client) SetProductSnapshot(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product snapshot: %w", err)
	}
	return c.rdb.Set(ctx, productKey(product.ID), data, snapshotTTL).Err()
}

// GetProductSnapshot returns the cached product state, or nil on a miss.
func (c *Client) GetProductSnapshot(ctx context.Context, productID int64) (*models.Product, error) {
	data, err := c.rdb.Get(ctx, productKey(productID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product snapshot: %w", err)
	}
	return &product, nil
}

// InvalidateProduct drops a cached snapshot.
func (c *Client) InvalidateProduct(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, productKey(productID)).Err()
}

// SyncProducts refreshes the mirror for a batch of products. Used at
// startup and after each committed stock mutation.
func (c *Client) SyncProducts(ctx context.Context, products []models.Product) error {
	pipe := c.rdb.Pipeline()
	for i := range products {
		data, err := json.Marshal(&products[i])
		if err != nil {
			return fmt.Errorf("failed to marshal product %d: %w", products[i].ID, err)
		}
		pipe.Set(ctx, productKey(products[i].ID), data, snapshotTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

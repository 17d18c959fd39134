package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedClient wraps a Client with a Redis cache-aside layer. Cache failures
// fall through to the underlying client; the catalog stays usable without
// Redis.
type CachedClient struct {
	inner  Client
	client *redis.Client
	ttl    time.Duration
}

func NewCachedClient(inner Client, client *redis.Client, ttl time.Duration) *CachedClient {
	return &CachedClient{
		inner:  inner,
		client: client,
		ttl:    ttl,
	}
}

func (c *CachedClient) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if c.lookup(ctx, "catalog:products", &products) {
		return products, nil
	}

	products, err := c.inner.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "catalog:products", products)
	return products, nil
}

func (c *CachedClient) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if c.lookup(ctx, "catalog:categories", &categories) {
		return categories, nil
	}

	categories, err := c.inner.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "catalog:categories", categories)
	return categories, nil
}

func (c *CachedClient) ListProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	key := fmt.Sprintf("catalog:category:%s", url.QueryEscape(category))

	var products []Product
	if c.lookup(ctx, key, &products) {
		return products, nil
	}

	products, err := c.inner.ListProductsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, products)
	return products, nil
}

func (c *CachedClient) lookup(ctx context.Context, key string, out any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		log.Printf("[Catalog] Cache read failed for %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("[Catalog] Cache entry for %s is malformed: %v", key, err)
		return false
	}
	return true
}

func (c *CachedClient) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("[Catalog] Failed to marshal cache entry for %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[Catalog] Cache write failed for %s: %v", key, err)
	}
}

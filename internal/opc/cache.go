package opc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a redis-backed store for discovered pools and the latest price
// per symbol, so a restart does not force an immediate rediscovery round
// (§4.2 "price_cache_duration_s governs staleness tolerance across
// restarts").
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func poolKey(symbol string) string { return fmt.Sprintf("opc:pool:%s", symbol) }
func priceKey(symbol string) string { return fmt.Sprintf("opc:price:%s", symbol) }

func (c *Cache) PutPool(ctx context.Context, symbol string, p PoolInfo) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pool for cache: %w", err)
	}
	return c.rdb.Set(ctx, poolKey(symbol), data, 0).Err()
}

func (c *Cache) GetPool(ctx context.Context, symbol string) (*PoolInfo, bool) {
	data, err := c.rdb.Get(ctx, poolKey(symbol)).Bytes()
	if err != nil {
		return nil, false
	}
	var p PoolInfo
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *Cache) PutPrice(ctx context.Context, pd PriceData) error {
	data, err := json.Marshal(pd)
	if err != nil {
		return fmt.Errorf("marshal price for cache: %w", err)
	}
	return c.rdb.Set(ctx, priceKey(pd.Symbol), data, c.ttl).Err()
}

// GetPrice returns the cached price and whether it is still within the
// configured cache duration; redis TTL eviction already enforces this but
// the bool return lets callers distinguish "absent" from "expired" in logs.
func (c *Cache) GetPrice(ctx context.Context, symbol string) (*PriceData, bool) {
	data, err := c.rdb.Get(ctx, priceKey(symbol)).Bytes()
	if err != nil {
		return nil, false
	}
	var pd PriceData
	if err := json.Unmarshal(data, &pd); err != nil {
		return nil, false
	}
	return &pd, true
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"cctvstore/backend/internal/domain"
)

type RedisPriceTableCache struct {
	client *redis.Client
}

func NewRedisPriceTableCache(addr string, password string, db int) *RedisPriceTableCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisPriceTableCache{client: client}
}

func (c *RedisPriceTableCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPriceTableCache) Close() error {
	return c.client.Close()
}

func (c *RedisPriceTableCache) Get(ctx context.Context, key string) (*domain.PriceTableDocument, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var doc domain.PriceTableDocument
	if err := json.Unmarshal(val, &doc); err != nil {
		return nil, false, err
	}
	return &doc, true, nil
}

func (c *RedisPriceTableCache) Set(ctx context.Context, key string, value *domain.PriceTableDocument, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisPriceTableCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

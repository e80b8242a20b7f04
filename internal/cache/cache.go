package cache

import (
	"context"
	"time"

	"cctvstore/backend/internal/domain"
)

// PriceTableKey is where the shared price-table snapshot lives.
const PriceTableKey = "quotation:price-table:v1"

type PriceTableCache interface {
	Get(ctx context.Context, key string) (*domain.PriceTableDocument, bool, error)
	Set(ctx context.Context, key string, value *domain.PriceTableDocument, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopPriceTableCache struct{}

func (NoopPriceTableCache) Get(_ context.Context, _ string) (*domain.PriceTableDocument, bool, error) {
	return nil, false, nil
}

func (NoopPriceTableCache) Set(_ context.Context, _ string, _ *domain.PriceTableDocument, _ time.Duration) error {
	return nil
}

func (NoopPriceTableCache) Delete(_ context.Context, _ string) error {
	return nil
}

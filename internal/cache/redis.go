package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"tienda-barrio/internal/domain"
)

const generationKey = "catalog:generation"

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewRedisCache(client *redis.Client, baseTTL time.Duration, metrics *Metrics) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 5 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
		metrics: metrics,
	}
}

// RedisCache namespaces every listing key with a generation number, so
// bumping the generation orphans all previous listings until they expire.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
	metrics *Metrics
}

func (r *RedisCache) GetProducts(ctx context.Context, filterKey string) ([]domain.Product, int64, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		r.metrics.observe("error")
		return nil, 0, err
	}

	data, err := r.client.Get(ctx, listingKey(gen, filterKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.observe("miss")
		return nil, gen, ErrCacheMiss
	}
	if err != nil {
		r.metrics.observe("error")
		return nil, gen, fmt.Errorf("redis get failed: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		r.metrics.observe("error")
		return nil, gen, fmt.Errorf("unmarshal products failed: %w", err)
	}
	r.metrics.observe("hit")
	return products, gen, nil
}

// SetProducts writes under the given generation, never the current one.
func (r *RedisCache) SetProducts(ctx context.Context, generation int64, filterKey string, products []domain.Product) error {
	if products == nil {
		products = []domain.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal products failed: %w", err)
	}

	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/5) + 1))
	if err := r.client.Set(ctx, listingKey(generation, filterKey), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return nil
}

func (r *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

func listingKey(generation int64, filterKey string) string {
	return fmt.Sprintf("catalog:v%d:products:%s", generation, filterKey)
}

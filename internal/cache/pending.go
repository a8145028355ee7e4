package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodpass/backoffice/internal/config"
	"github.com/goodpass/backoffice/internal/domain"
	"github.com/redis/go-redis/v9"
)

const pendingReviewsKey = "kyc:pending"

// ErrCacheMiss is returned when the requested key is absent.
var ErrCacheMiss = errors.New("cache miss")

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// PendingKYCCache keeps the assembled pending-review list in Redis so the
// dashboard does not hit three Postgres queries on every refresh. Entries
// are invalidated whenever a moderator decides a verification.
type PendingKYCCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPendingKYCCache(client *redis.Client, ttl time.Duration) *PendingKYCCache {
	return &PendingKYCCache{client: client, ttl: ttl}
}

func (c *PendingKYCCache) Get(ctx context.Context) ([]*domain.PendingReview, error) {
	data, err := c.client.Get(ctx, pendingReviewsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending reviews from cache: %w", err)
	}

	var reviews []*domain.PendingReview
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached pending reviews: %w", err)
	}
	return reviews, nil
}

func (c *PendingKYCCache) Set(ctx context.Context, reviews []*domain.PendingReview) error {
	data, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("failed to marshal pending reviews: %w", err)
	}
	if err := c.client.Set(ctx, pendingReviewsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache pending reviews: %w", err)
	}
	return nil
}

func (c *PendingKYCCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, pendingReviewsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate pending reviews cache: %w", err)
	}
	return nil
}

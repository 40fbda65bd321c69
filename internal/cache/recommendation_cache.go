package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/inventory-optimizer/internal/config"
	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
)

const (
	recommendationKeyPrefix = "reorder:recommendations"
	recommendationScanBatch = 100
)

// RecommendationKey identifies one computation: the dataset fingerprint plus
// the parameters it ran with.
type RecommendationKey struct {
	Dataset string
	Params  reorder.Params
}

func (k RecommendationKey) String() string {
	raw := k.Dataset + "|" +
		strconv.FormatFloat(k.Params.LeadTimeDays, 'f', -1, 64) + "|" +
		strconv.FormatFloat(k.Params.ZValue, 'f', -1, 64) + "|" +
		strconv.Itoa(k.Params.Window)
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s", recommendationKeyPrefix, hex.EncodeToString(sum[:]))
}

type RecommendationCache interface {
	Get(ctx context.Context, key RecommendationKey) (*reorder.Result, bool, error)
	Set(ctx context.Context, key RecommendationKey, res *reorder.Result) error
	InvalidateAll(ctx context.Context) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

// NewRecommendationCache returns a Redis backed cache when enabled and a
// no-op one otherwise.
func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	client, ttl, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}
	return &redisRecommendationCache{client: client, ttl: ttl}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

func (c *redisRecommendationCache) Get(ctx context.Context, key RecommendationKey) (*reorder.Result, bool, error) {
	payload, err := c.client.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var res reorder.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, false, fmt.Errorf("decode recommendation cache: %w", err)
	}
	return &res, true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, key RecommendationKey, res *reorder.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode recommendation cache: %w", err)
	}
	if err := c.client.Set(ctx, key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRecommendationCache) InvalidateAll(ctx context.Context) error {
	return unlinkPrefix(ctx, c.client, recommendationKeyPrefix, recommendationScanBatch)
}

func (n *noopRecommendationCache) Get(ctx context.Context, key RecommendationKey) (*reorder.Result, bool, error) {
	return nil, false, nil
}

func (n *noopRecommendationCache) Set(ctx context.Context, key RecommendationKey, res *reorder.Result) error {
	return nil
}

func (n *noopRecommendationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

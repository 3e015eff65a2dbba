// Package cache stores rendered calculation results keyed by their inputs.
package cache

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/iwvelando/rocket-calculator/internal/config"
	"github.com/iwvelando/rocket-calculator/internal/sizing"
	"go.uber.org/zap"
)

// keyPrefix namespaces calculator entries in a shared store.
const keyPrefix = "rocket-calculator:result:"

// Cache is a string key-value store with expiring entries.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string) error
	Close() error
}

// Key derives the cache key for a set of inputs. Inputs that differ in any
// bit of any field map to different keys.
func Key(inputs sizing.RocketInputs) string {
	digest := xxhash.New()
	for _, value := range []float64{
		inputs.PayloadMass,
		inputs.SpecificImpulse,
		inputs.LaunchLatitude,
		inputs.OrbitAltitude,
		inputs.StructuralFraction,
		inputs.DeltaVBudget,
	} {
		_, _ = digest.WriteString(strconv.FormatUint(math.Float64bits(value), 16))
		_, _ = digest.WriteString(",")
	}
	return keyPrefix + strconv.FormatUint(digest.Sum64(), 16)
}

// New returns a Redis backed cache when an address is configured and an
// in-memory cache otherwise. The Redis server must answer a ping.
func New(ctx context.Context, logger *zap.Logger, conf config.CacheConfig) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if conf.RedisAddress == "" {
		logger.Debug("using in-memory result cache",
			zap.String("op", "cache.New"),
			zap.Duration("ttl", conf.TTL),
		)
		return NewMemoryCache(conf.TTL), nil
	}

	redisCache := NewRedisCache(conf.RedisAddress, conf.RedisPassword, conf.RedisDB, conf.TTL)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		_ = redisCache.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", conf.RedisAddress, err)
	}

	logger.Info("using redis result cache",
		zap.String("op", "cache.New"),
		zap.String("address", conf.RedisAddress),
		zap.Duration("ttl", conf.TTL),
	)
	return redisCache, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/location"
)

const (
	locationKeyPrefix = "catalog:location:"
	// missMarker caches a negative lookup.
	missMarker = "-"
)

// LocationCache is a read-through cache in front of a location.Lookup.
// Misses are cached too. Redis failures are logged and the lookup falls
// through to the backend.
type LocationCache struct {
	client *redis.Client
	next   location.Lookup
	ttl    time.Duration
	logger *slog.Logger
}

// NewLocationCache wraps next with a Redis cache whose entries expire after ttl.
func NewLocationCache(client *redis.Client, next location.Lookup, ttl time.Duration, logger *slog.Logger) *LocationCache {
	return &LocationCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

// storePrefix query-escapes the store ID so that it holds neither the ':'
// separator nor SCAN glob characters.
func storePrefix(storeID string) string {
	return locationKeyPrefix + url.QueryEscape(storeID) + ":"
}

// LookupPincode implements location.Lookup.
func (c *LocationCache) LookupPincode(ctx context.Context, storeID, pincode string) (*domain.LocationGroup, error) {
	return c.cached(ctx, storePrefix(storeID)+"pincode:"+pincode, domain.ErrPincodeNotFound, func() (*domain.LocationGroup, error) {
		return c.next.LookupPincode(ctx, storeID, pincode)
	})
}

// DefaultGroup implements location.Lookup.
func (c *LocationCache) DefaultGroup(ctx context.Context, storeID string) (*domain.LocationGroup, error) {
	return c.cached(ctx, storePrefix(storeID)+"default", domain.ErrNoDefaultGroup, func() (*domain.LocationGroup, error) {
		return c.next.DefaultGroup(ctx, storeID)
	})
}

// GetGroup implements location.Lookup.
func (c *LocationCache) GetGroup(ctx context.Context, storeID, groupID string) (*domain.LocationGroup, error) {
	return c.cached(ctx, storePrefix(storeID)+"group:"+groupID, domain.ErrLocationGroupNotFound, func() (*domain.LocationGroup, error) {
		return c.next.GetGroup(ctx, storeID, groupID)
	})
}

func (c *LocationCache) cached(ctx context.Context, key string, miss error, load func() (*domain.LocationGroup, error)) (*domain.LocationGroup, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == missMarker {
			return nil, miss
		}
		var g domain.LocationGroup
		if err := json.Unmarshal(data, &g); err == nil {
			return &g, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt location cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "location cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	g, err := load()
	switch {
	case errors.Is(err, miss):
		c.store(ctx, key, []byte(missMarker))
		return nil, miss
	case err != nil:
		return nil, err
	}

	data, err = json.Marshal(g)
	if err == nil {
		c.store(ctx, key, data)
	}
	return g, nil
}

func (c *LocationCache) store(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "location cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate drops every cached entry of the store.
func (c *LocationCache) Invalidate(ctx context.Context, storeID string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, storePrefix(storeID)+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan location keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis del location keys: %w", err)
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

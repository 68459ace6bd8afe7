// Package cache is a read-through redis layer over the scan ConfigSource.
// Delivery configuration (tests, redirects, schedules, versions, rules) is
// cached under a short TTL; the QR record itself is never cached, so the
// validity gate always sees the current scan count. Every cache failure
// degrades to a direct store read.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "qrflow/internal/platform/redis"
	qrmodels "qrflow/internal/qrcode/models"
	"qrflow/internal/scan/service"
	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
)

// Cache decorates a ConfigSource with redis-backed snapshot reads.
type Cache struct {
	next   service.ConfigSource
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for degradation reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New constructs a Cache over next.
func New(next service.ConfigSource, client *platformredis.Client, ttl time.Duration, opts ...Option) (*Cache, error) {
	if next == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "config source is required")
	}
	if client == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "redis client is required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "cache ttl must be positive")
	}
	c := &Cache{next: next, redis: client, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// QRCodeByShortID always reads through to the store. The scan counter lives
// on this record; caching it would let expired limits admit extra scans.
func (c *Cache) QRCodeByShortID(ctx context.Context, shortID string) (*qrmodels.QRCode, error) {
	return c.next.QRCodeByShortID(ctx, shortID)
}

func (c *Cache) RunningABTest(ctx context.Context, qrID id.QRCodeID) (*qrmodels.ABTest, error) {
	return fetch(ctx, c, "qrflow:abtest:"+qrID.String(), func(ctx context.Context) (*qrmodels.ABTest, error) {
		return c.next.RunningABTest(ctx, qrID)
	})
}

func (c *Cache) RedirectRules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.RedirectRule, error) {
	return fetch(ctx, c, "qrflow:redirects:"+qrID.String(), func(ctx context.Context) ([]*qrmodels.RedirectRule, error) {
		return c.next.RedirectRules(ctx, qrID)
	})
}

func (c *Cache) ContentSchedules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.ContentSchedule, error) {
	return fetch(ctx, c, "qrflow:schedules:"+qrID.String(), func(ctx context.Context) ([]*qrmodels.ContentSchedule, error) {
		return c.next.ContentSchedules(ctx, qrID)
	})
}

func (c *Cache) ActiveVersion(ctx context.Context, qrID id.QRCodeID) (*qrmodels.ContentVersion, error) {
	return fetch(ctx, c, "qrflow:activeversion:"+qrID.String(), func(ctx context.Context) (*qrmodels.ContentVersion, error) {
		return c.next.ActiveVersion(ctx, qrID)
	})
}

func (c *Cache) VersionByID(ctx context.Context, versionID id.VersionID) (*qrmodels.ContentVersion, error) {
	return fetch(ctx, c, "qrflow:version:"+versionID.String(), func(ctx context.Context) (*qrmodels.ContentVersion, error) {
		return c.next.VersionByID(ctx, versionID)
	})
}

func (c *Cache) ContentRules(ctx context.Context, qrID id.QRCodeID) ([]*qrmodels.ContentRule, error) {
	return fetch(ctx, c, "qrflow:rules:"+qrID.String(), func(ctx context.Context) ([]*qrmodels.ContentRule, error) {
		return c.next.ContentRules(ctx, qrID)
	})
}

// fetch reads the key from redis, falling back to load on miss or error. A
// nil result is cached as JSON null so absent configuration also benefits
// from the TTL.
func fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("corrupt cache entry, reading through", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache read failed, reading through", "key", key, "error", err)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if encoded, err := json.Marshal(value); err == nil {
		if err := c.redis.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return value, nil
}

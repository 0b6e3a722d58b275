package robots

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/IliaW/robots-gate/internal/cache"
	"github.com/IliaW/robots-gate/internal/model"
	"github.com/IliaW/robots-gate/internal/telemetry"
)

var (
	ErrInvalidOrigin = errors.New("invalid url. Url should contain scheme and hostname")
)

type Fetcher interface {
	FetchRobots(ctx context.Context, robotsURL string) (string, error)
}

// RobotsCache returns robots.txt bodies per origin and refetches them once they are older than ttl.
// Entries are written once per ttl window, concurrent refetches of the same origin are harmless.
type RobotsCache struct {
	store   cache.CachedClient
	fetcher Fetcher
	ttl     time.Duration
	metrics *telemetry.RobotsMetrics
	now     func() time.Time
}

func NewRobotsCache(store cache.CachedClient, fetcher Fetcher, ttl time.Duration,
	metrics *telemetry.RobotsMetrics) *RobotsCache {
	return &RobotsCache{
		store:   store,
		fetcher: fetcher,
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
	}
}

// Origin returns scheme://host[:port] of targetURL.
func Origin(targetURL string) (string, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidOrigin
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

// RobotsURL returns the robots.txt location for origin.
func RobotsURL(origin string) string {
	return origin + "/robots.txt"
}

// Get returns the robots.txt body of origin. A network failure is returned as an error and nothing is cached.
func (c *RobotsCache) Get(ctx context.Context, origin string) (string, error) {
	if entry, ok := c.store.GetRobotsEntry(origin); ok {
		if c.now().Sub(entry.FetchedAt) <= c.ttl {
			slog.Debug("robots.txt found in cache.", slog.String("origin", origin))
			c.metrics.CacheHitCnt(1)
			return entry.Body, nil
		}
		slog.Debug("cached robots.txt is stale.", slog.String("origin", origin),
			slog.Time("fetched_at", entry.FetchedAt))
	}
	c.metrics.CacheMissCnt(1)

	robotsURL := RobotsURL(origin)
	body, err := c.fetcher.FetchRobots(ctx, robotsURL)
	if err != nil {
		c.metrics.FetchErrorCnt(1)
		return "", err
	}

	c.store.SaveRobotsEntry(origin, &model.RobotsEntry{
		Origin:    origin,
		Body:      body,
		FetchedAt: c.now(),
	}, c.ttl)

	return body, nil
}

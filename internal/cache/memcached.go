package cache

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/model"
	"github.com/bradfitz/gomemcache/memcache"
)

// memcached treats expirations above 30 days as an absolute unix timestamp
const maxRelativeExpiration = 30 * 24 * time.Hour

type MemcachedClient struct {
	client *memcache.Client
	cfg    *config.CacheConfig
	now    func() time.Time
}

func NewMemcachedClient(cacheConfig *config.CacheConfig) *MemcachedClient {
	slog.Info("connecting to memcached...")
	ss := new(memcache.ServerList)
	err := ss.SetServers(cacheConfig.Servers...)
	if err != nil {
		slog.Error("failed to set memcached servers.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	c := &MemcachedClient{
		client: memcache.NewFromSelector(ss),
		cfg:    cacheConfig,
		now:    time.Now,
	}
	slog.Info("pinging the memcached.")
	err = c.client.Ping()
	if err != nil {
		slog.Error("connection to the memcached is failed.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to memcached!")

	return c
}

func (mc *MemcachedClient) GetRobotsEntry(origin string) (*model.RobotsEntry, bool) {
	key := robotsKey(origin)
	item, err := mc.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			slog.Debug("cache not found.", slog.String("key", key), slog.String("origin", origin))
			return nil, false
		} else {
			slog.Error("failed to check if cached.", slog.String("key", key), slog.String("origin", origin),
				slog.String("err", err.Error()))
			return nil, false
		}
	}

	entry, err := decodeEntry(item.Value)
	if err != nil {
		slog.Error("failed to unmarshal cached robots entry.", slog.String("key", key),
			slog.String("err", err.Error()))
		return nil, false
	}
	slog.Debug("cache found.", slog.String("key", key))

	return entry, true
}

func (mc *MemcachedClient) SaveRobotsEntry(origin string, entry *model.RobotsEntry, ttl time.Duration) {
	key := robotsKey(origin)
	if err := mc.set(key, entry, mc.expiration(ttl)); err != nil {
		slog.Error("failed to save robots entry to cache.", slog.String("key", key),
			slog.String("err", err.Error()))
		return
	}
	slog.Debug("robots entry saved to cache.", slog.String("origin", origin))
}

func (mc *MemcachedClient) Close() {
	slog.Info("closing memcached connection.")
	err := mc.client.Close()
	if err != nil {
		slog.Error("failed to close memcached connection.", slog.String("err", err.Error()))
	}
}

func (mc *MemcachedClient) set(key string, value any, expiration int32) error {
	byteValue, err := json.Marshal(value)
	if err != nil {
		return err
	}
	item := &memcache.Item{
		Key:        key,
		Value:      byteValue,
		Expiration: expiration,
	}

	return mc.client.Set(item)
}

func (mc *MemcachedClient) expiration(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > maxRelativeExpiration {
		return int32(mc.now().Add(ttl).Unix())
	}
	return int32(ttl.Seconds())
}

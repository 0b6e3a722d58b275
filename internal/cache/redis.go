package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/model"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(cacheConfig *config.CacheConfig) *RedisClient {
	slog.Info("connecting to redis...")
	client := redis.NewClient(&redis.Options{
		Addr:         cacheConfig.RedisAddr,
		DB:           cacheConfig.RedisDb,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("connection to the redis is failed.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to redis!")

	return &RedisClient{client: client}
}

func (rc *RedisClient) GetRobotsEntry(origin string) (*model.RobotsEntry, bool) {
	key := robotsKey(origin)
	value, err := rc.client.Get(context.Background(), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			slog.Debug("cache not found.", slog.String("key", key), slog.String("origin", origin))
			return nil, false
		}
		slog.Error("failed to check if cached.", slog.String("key", key), slog.String("origin", origin),
			slog.String("err", err.Error()))
		return nil, false
	}

	entry, err := decodeEntry(value)
	if err != nil {
		slog.Error("failed to unmarshal cached robots entry.", slog.String("key", key),
			slog.String("err", err.Error()))
		return nil, false
	}
	slog.Debug("cache found.", slog.String("key", key))

	return entry, true
}

func (rc *RedisClient) SaveRobotsEntry(origin string, entry *model.RobotsEntry, ttl time.Duration) {
	key := robotsKey(origin)
	value, err := json.Marshal(entry)
	if err != nil {
		slog.Error("failed to marshal robots entry.", slog.String("err", err.Error()))
		return
	}
	if err = rc.client.Set(context.Background(), key, value, ttl).Err(); err != nil {
		slog.Error("failed to save robots entry to cache.", slog.String("key", key),
			slog.String("err", err.Error()))
		return
	}
	slog.Debug("robots entry saved to cache.", slog.String("origin", origin))
}

func (rc *RedisClient) Close() {
	slog.Info("closing redis connection.")
	if err := rc.client.Close(); err != nil {
		slog.Error("failed to close redis connection.", slog.String("err", err.Error()))
	}
}

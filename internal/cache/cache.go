package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/model"
)

// CachedClient stores robots.txt entries keyed by origin.
// Lookup failures are logged and reported as a miss.
//
//go:generate go run github.com/vektra/mockery/v2@v2.53.0 --name CachedClient
type CachedClient interface {
	GetRobotsEntry(string) (*model.RobotsEntry, bool)
	SaveRobotsEntry(string, *model.RobotsEntry, time.Duration)
	Close()
}

// NewCachedClient picks the store by cache.type: memcached (default), redis or memory.
func NewCachedClient(cacheConfig *config.CacheConfig) CachedClient {
	switch strings.ToLower(cacheConfig.Type) {
	case "redis":
		return NewRedisClient(cacheConfig)
	case "memory":
		slog.Info("using in-memory robots cache.")
		return NewMemoryClient()
	default:
		return NewMemcachedClient(cacheConfig)
	}
}

func decodeEntry(value []byte) (*model.RobotsEntry, error) {
	var entry model.RobotsEntry
	if err := json.Unmarshal(value, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// robotsKey hashes the origin so the key fits memcached's charset and length limits.
func robotsKey(origin string) string {
	return fmt.Sprintf("%s-robots-txt", hashURL(origin))
}

func hashURL(url string) string {
	hash := sha256.New()
	hash.Write([]byte(url))
	return hex.EncodeToString(hash.Sum(nil))
}

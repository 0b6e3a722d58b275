package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/IliaW/robots-gate/internal/model"
)

// MemoryClient keeps robots entries inside the process. Used for local runs and tests.
type MemoryClient struct {
	mu      sync.RWMutex
	entries map[string]memoryItem
	now     func() time.Time
}

type memoryItem struct {
	entry     *model.RobotsEntry
	expiresAt time.Time // zero means no expiration
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		entries: make(map[string]memoryItem),
		now:     time.Now,
	}
}

func (m *MemoryClient) GetRobotsEntry(origin string) (*model.RobotsEntry, bool) {
	m.mu.RLock()
	item, ok := m.entries[origin]
	m.mu.RUnlock()
	if !ok {
		slog.Debug("cache not found.", slog.String("origin", origin))
		return nil, false
	}
	if !item.expiresAt.IsZero() && m.now().After(item.expiresAt) {
		slog.Debug("cache expired.", slog.String("origin", origin))
		return nil, false
	}

	return item.entry, true
}

func (m *MemoryClient) SaveRobotsEntry(origin string, entry *model.RobotsEntry, ttl time.Duration) {
	item := memoryItem{entry: entry}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[origin] = item
	m.mu.Unlock()
}

func (m *MemoryClient) Close() {}

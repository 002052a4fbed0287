// Package cache holds the in-process implementation of core.CacheStore.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
)

const sweepSchedule = "@every 1m"

var entriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "memoria_memory_cache_entries",
	Help: "Entries currently held by the in-memory cache.",
})

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a TTL map. Expired entries are invisible to Get immediately and
// are dropped by a periodic sweep.
type Memory struct {
	Logger *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	cron    *cron.Cron
}

func (m *Memory) Init(_ context.Context) error {
	m.Logger = m.Logger.With("component", "cache.Memory")

	m.cron = cron.New()
	_, err := m.cron.AddFunc(sweepSchedule, func() {
		if n := m.Sweep(); n > 0 {
			m.Logger.Debug("Swept expired cache entries", "count", n)
		}
	})
	return err
}

func (m *Memory) Run(ctx context.Context) error {
	m.cron.Start()
	<-ctx.Done()
	<-m.cron.Stop().Done()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil {
		m.entries = map[string]entry{}
	}

	m.entries[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}
	entriesGauge.Set(float64(len(m.entries)))

	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	entriesGauge.Set(float64(len(m.entries)))

	return removed
}

func (m *Memory) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

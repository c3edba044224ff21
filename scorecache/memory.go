package scorecache

import (
	"context"
	"sync"
	"time"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
)

// Memory is an in-process Store. Stale entries are hidden on read and removed
// by Sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	maxAge  time.Duration
	now     func() time.Time
	log     logger.Logger
}

// NewMemory creates an empty cache whose entries live for maxAge.
func NewMemory(maxAge time.Duration, log logger.Logger) *Memory {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Memory{
		entries: make(map[Key]Entry),
		maxAge:  maxAge,
		now:     time.Now,
		log:     log,
	}
}

func (m *Memory) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || !e.Fresh(m.now(), m.maxAge) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (m *Memory) Put(_ context.Context, key Key, e Entry) error {
	if e.ComputedAt.IsZero() {
		e.ComputedAt = m.now()
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, stale ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep evicts every entry older than maxAge at now and returns how many went.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for k, e := range m.entries {
		if !e.Fresh(now, m.maxAge) {
			delete(m.entries, k)
			evicted++
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables sweeping; stale entries are still hidden on Get.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		m.log.Warn("Cache sweep disabled", map[string]interface{}{"interval": interval.String()})
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(m.now()); n > 0 {
				m.log.Debug("Swept stale scores", map[string]interface{}{"evicted": n})
			}
		}
	}
}

package services

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/quotaboard/models"
)

// ConfigSnapshot is an immutable, versioned view of the check-in policy.
// Every service call reads one snapshot, so a concurrent admin update can
// never be observed half-applied.
type ConfigSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Config   models.CheckInConfig
}

// ConfigProvider serves bounded-staleness snapshots of the check-in config
// from the options table. Staleness never exceeds maxAge; Invalidate forces
// the next read to hit the store.
type ConfigProvider struct {
	db     *gorm.DB
	maxAge time.Duration

	mu   sync.RWMutex
	cur  *ConfigSnapshot
	vseq int64
}

// NewConfigProvider builds a provider with the given staleness bound.
func NewConfigProvider(db *gorm.DB, maxAge time.Duration) *ConfigProvider {
	if maxAge <= 0 {
		maxAge = 30 * time.Second
	}
	return &ConfigProvider{db: db, maxAge: maxAge}
}

// Snapshot returns the current config, reloading when the cached copy is
// older than the staleness bound.
func (p *ConfigProvider) Snapshot() (*ConfigSnapshot, error) {
	p.mu.RLock()
	cur := p.cur
	p.mu.RUnlock()

	if cur != nil && time.Since(cur.LoadedAt) < p.maxAge {
		return cur, nil
	}
	return p.reload()
}

// Update validates, persists, and immediately publishes a new config.
func (p *ConfigProvider) Update(cfg models.CheckInConfig) error {
	if err := models.SaveCheckInConfig(p.db, cfg); err != nil {
		return err
	}
	_, err := p.reload()
	return err
}

// Invalidate drops the cached snapshot.
func (p *ConfigProvider) Invalidate() {
	p.mu.Lock()
	p.cur = nil
	p.mu.Unlock()
}

func (p *ConfigProvider) reload() (*ConfigSnapshot, error) {
	cfg, err := models.LoadCheckInConfig(p.db)
	if err != nil {
		// Serve the stale copy rather than failing the request when the
		// store hiccups and we still hold a snapshot.
		p.mu.RLock()
		cur := p.cur
		p.mu.RUnlock()
		if cur != nil {
			return cur, nil
		}
		return nil, storeUnavailable(err)
	}

	p.mu.Lock()
	p.vseq++
	p.cur = &ConfigSnapshot{
		Version:  p.vseq,
		LoadedAt: time.Now(),
		Config:   cfg,
	}
	snap := p.cur
	p.mu.Unlock()
	return snap, nil
}

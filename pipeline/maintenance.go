package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/translatex/translatex-go/store"
)

// Maintenance periodically prunes the page cache in the background,
// decoupled from request serving.
type Maintenance struct {
	pages       *store.PageCache
	interval    time.Duration
	unusedAfter time.Duration // 0 disables the unused-entry purge
	logger      *slog.Logger
}

// NewMaintenance creates a maintenance loop over the page cache.
// interval defaults to 24h.
func NewMaintenance(pages *store.PageCache, interval, unusedAfter time.Duration, logger *slog.Logger) *Maintenance {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintenance{
		pages:       pages,
		interval:    interval,
		unusedAfter: unusedAfter,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval. Run it
// on its own goroutine.
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Maintenance) sweep(ctx context.Context) {
	n, err := m.pages.PurgeWithoutFingerprint(ctx)
	if err != nil {
		m.logger.Error("fingerprint purge failed", "error", err)
	} else if n > 0 {
		m.logger.Info("purged fingerprint-less page entries", "count", n)
	}

	if m.unusedAfter > 0 {
		n, err := m.pages.PurgeUnused(ctx, m.unusedAfter)
		if err != nil {
			m.logger.Error("unused purge failed", "error", err)
		} else if n > 0 {
			m.logger.Info("purged unused page entries", "count", n)
		}
	}
}

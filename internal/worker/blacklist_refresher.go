package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reloader reloads a revocation set from its store.
type Reloader interface {
	Reload(ctx context.Context) error
	Len() int
}

// BlacklistRefresher keeps the in-process blacklist in step with the shared
// store so revocations made on other instances take effect here.
type BlacklistRefresher struct {
	blacklist Reloader
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// NewBlacklistRefresher builds a refresher.
func NewBlacklistRefresher(blacklist Reloader, interval time.Duration, logger *zap.Logger) *BlacklistRefresher {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlacklistRefresher{blacklist: blacklist, interval: interval, timeout: 10 * time.Second, logger: logger}
}

// Run reloads immediately and then every interval until ctx is done.
func (r *BlacklistRefresher) Run(ctx context.Context) {
	r.reload(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reload(ctx)
		}
	}
}

func (r *BlacklistRefresher) reload(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.blacklist.Reload(ctx); err != nil {
		r.logger.Warn("blacklist reload failed", zap.Error(err))
		return
	}
	r.logger.Debug("blacklist reloaded", zap.Int("size", r.blacklist.Len()))
}

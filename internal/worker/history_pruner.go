package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner drops history idle since before.
type Pruner interface {
	Prune(before time.Time) int
}

// HistoryPruner bounds the number of tickets held in validation history.
type HistoryPruner struct {
	history   Pruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewHistoryPruner builds a pruner forgetting tickets idle for retention.
func NewHistoryPruner(history Pruner, retention time.Duration, logger *zap.Logger) *HistoryPruner {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	interval := retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryPruner{history: history, retention: retention, interval: interval, now: time.Now, logger: logger}
}

// Run prunes every interval until ctx is done.
func (p *HistoryPruner) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce()
		}
	}
}

// PruneOnce runs a single pass and returns the number of tickets dropped.
func (p *HistoryPruner) PruneOnce() int {
	removed := p.history.Prune(p.now().Add(-p.retention))
	if removed > 0 {
		p.logger.Debug("validation history pruned", zap.Int("tickets", removed))
	}
	return removed
}

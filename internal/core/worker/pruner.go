package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/fencer/internal/core/config"
	"github.com/vietddude/fencer/internal/infra/storage"
	"github.com/vietddude/fencer/internal/metrics"
)

// Pruner deletes old data based on retention policy: expired or
// revoked sessions, and soft-deleted fences past their recovery
// window.
type Pruner struct {
	cfg         config.RetentionConfig
	fenceRepo   storage.FenceRepository
	sessionRepo storage.SessionRepository
}

// NewPruner creates a new Pruner worker.
func NewPruner(
	cfg config.RetentionConfig,
	fenceRepo storage.FenceRepository,
	sessionRepo storage.SessionRepository,
) *Pruner {
	return &Pruner{
		cfg:         cfg,
		fenceRepo:   fenceRepo,
		sessionRepo: sessionRepo,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	interval := p.interval()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) interval() time.Duration {
	base := p.cfg.DeletedFences
	if p.cfg.ExpiredSessions > 0 && (base == 0 || p.cfg.ExpiredSessions < base) {
		base = p.cfg.ExpiredSessions
	}
	if base == 0 {
		return 1 * time.Hour
	}
	interval := min(base/10, 1*time.Hour)
	return max(interval, 1*time.Minute)
}

func (p *Pruner) prune(ctx context.Context) {
	now := time.Now()

	sessionThreshold := now.Add(-p.cfg.ExpiredSessions)
	n, err := p.sessionRepo.DeleteExpiredBefore(ctx, sessionThreshold)
	if err != nil {
		slog.Error("Pruner failed to delete expired sessions", "error", err)
	} else if n > 0 {
		metrics.SessionsPruned.Add(float64(n))
		slog.Debug("Pruned expired sessions", "count", n)
	}

	if p.cfg.DeletedFences > 0 {
		fenceThreshold := now.Add(-p.cfg.DeletedFences)
		n, err := p.fenceRepo.PurgeDeletedBefore(ctx, fenceThreshold)
		if err != nil {
			slog.Error("Pruner failed to purge deleted fences", "error", err)
		} else if n > 0 {
			metrics.FencesPruned.Add(float64(n))
			slog.Debug("Purged soft-deleted fences", "count", n)
		}
	}
}

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/fencer/internal/core/config"
	"github.com/vietddude/fencer/internal/core/domain"
	"github.com/vietddude/fencer/internal/infra/storage/memory"
)

func TestPruner_Prune(t *testing.T) {
	store := memory.NewMemoryStorage()
	fences := memory.NewFenceRepo(store)
	sessions := memory.NewSessionRepo(store)
	ctx := context.Background()

	now := time.Now()
	old := now.Add(-48 * time.Hour)

	// A fence soft-deleted two days ago and one deleted just now.
	_ = fences.Create(ctx, &domain.Geofence{ID: "f-old", Name: "Old", RadiusM: 10})
	_ = fences.Create(ctx, &domain.Geofence{ID: "f-new", Name: "New", RadiusM: 10})
	_ = fences.SoftDelete(ctx, "f-old", old)
	_ = fences.SoftDelete(ctx, "f-new", now)

	// One long-expired session, one live.
	_ = sessions.Create(ctx, &domain.Session{ID: "s-old", ExpiresAt: old})
	_ = sessions.Create(ctx, &domain.Session{ID: "s-live", ExpiresAt: now.Add(time.Hour)})

	p := NewPruner(config.RetentionConfig{
		DeletedFences:   24 * time.Hour,
		ExpiredSessions: 1 * time.Hour,
	}, fences, sessions)

	p.prune(ctx)

	if _, err := sessions.GetByID(ctx, "s-old"); err == nil {
		t.Error("expected expired session pruned")
	}
	if _, err := sessions.GetByID(ctx, "s-live"); err != nil {
		t.Errorf("live session must survive: %v", err)
	}

	// f-old purged for good, f-new still within the recovery window.
	if n, _ := fences.PurgeDeletedBefore(ctx, old.Add(-time.Hour)); n != 0 {
		t.Error("expected f-old already purged")
	}
	if n, _ := fences.PurgeDeletedBefore(ctx, now.Add(time.Hour)); n != 1 {
		t.Errorf("expected f-new still present until its window passes, purge count %d", n)
	}
}

func TestPruner_Interval(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.RetentionConfig
		want time.Duration
	}{
		{"disabled retention defaults to an hour", config.RetentionConfig{}, 1 * time.Hour},
		{"short retention clamps at a minute",
			config.RetentionConfig{ExpiredSessions: 5 * time.Minute}, 1 * time.Minute},
		{"long retention caps at an hour",
			config.RetentionConfig{DeletedFences: 240 * time.Hour}, 1 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPruner(tt.cfg, nil, nil)
			if got := p.interval(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

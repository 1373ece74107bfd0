package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/fencer/internal/control"
	"github.com/vietddude/fencer/internal/core/config"
)

func TestGracefulShutdown(t *testing.T) {
	// Memory storage, no redis: enough to start every component
	// without external services.
	cfg := config.AppConfig{
		Server: config.ServerConfig{
			Port:       18080,
			HealthPort: 19090,
		},
		Auth: config.AuthConfig{
			JWTSecret:  "e2e-secret",
			AccessTTL:  15 * time.Minute,
			SessionTTL: time.Hour,
		},
		Retention: config.RetentionConfig{
			ExpiredSessions: time.Hour,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := control.NewServer(ctx, cfg, false)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let the listeners come up.
	time.Sleep(500 * time.Millisecond)

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := srv.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

package e2e

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/fencer/internal/client"
	"github.com/vietddude/fencer/internal/control"
	"github.com/vietddude/fencer/internal/core/config"
	"github.com/vietddude/fencer/internal/recovery"
)

const testPort = 18180

// startServer boots an in-memory server and returns a stop function.
func startServer(t *testing.T) func() {
	t.Helper()

	cfg := config.AppConfig{
		Server: config.ServerConfig{
			Port:       testPort,
			HealthPort: testPort + 1000,
		},
		Auth: config.AuthConfig{
			JWTSecret:  "e2e-secret",
			AccessTTL:  15 * time.Minute,
			SessionTTL: time.Hour,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())

	srv, err := control.NewServer(ctx, cfg, false)
	if err != nil {
		cancel()
		t.Fatalf("Failed to create server: %v", err)
	}
	if err := srv.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start failed: %v", err)
	}
	var once sync.Once
	stop := func() {
		once.Do(func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			_ = srv.Stop(stopCtx)
			cancel()
		})
	}
	t.Cleanup(stop)

	// Wait for the API listener.
	time.Sleep(300 * time.Millisecond)
	return stop
}

func TestClientFlow(t *testing.T) {
	startServer(t)
	ctx := context.Background()

	api := client.New(fmt.Sprintf("http://localhost:%d", testPort), 5*time.Second)
	defer api.Close()

	user, err := api.Register(ctx, "e2e@example.com", "hunter2hunter2", "E2E")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Register returned empty user ID")
	}

	if _, err := api.Login(ctx, "e2e@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	fence, err := api.CreateFence(ctx, client.FenceSpec{
		Name:        "Depot",
		Latitude:    52.52,
		Longitude:   13.405,
		RadiusM:     500,
		HysteresisM: 50,
	})
	if err != nil {
		t.Fatalf("CreateFence failed: %v", err)
	}

	fences, err := api.ListFences(ctx)
	if err != nil {
		t.Fatalf("ListFences failed: %v", err)
	}
	if len(fences) != 1 || fences[0].ID != fence.ID {
		t.Fatalf("Expected the created fence, got %+v", fences)
	}

	members, err := api.ListMembers(ctx, fence.ID)
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 1 || members[0].UserID != user.ID {
		t.Fatalf("Expected creator as sole owner, got %+v", members)
	}

	if err := api.DeleteFence(ctx, fence.ID); err != nil {
		t.Fatalf("DeleteFence failed: %v", err)
	}
	fences, err = api.ListFences(ctx)
	if err != nil {
		t.Fatalf("ListFences after delete failed: %v", err)
	}
	if len(fences) != 0 {
		t.Fatalf("Expected no fences after delete, got %d", len(fences))
	}
}

// TestBoundaryAgainstLiveServer drives the recovery boundary against a
// real server: healthy renders pass through, and killing the server
// produces a classified network failure surface.
func TestBoundaryAgainstLiveServer(t *testing.T) {
	stop := startServer(t)
	ctx := context.Background()

	api := client.New(fmt.Sprintf("http://localhost:%d", testPort), 2*time.Second)
	defer api.Close()

	if _, err := api.Register(ctx, "watch@example.com", "hunter2hunter2", "Watch User"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := api.Login(ctx, "watch@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	ctrl := recovery.NewController(recovery.Options{
		// Keep the timer out of the picture: this test only checks
		// capture and surface rendering.
		Scheduler: noopScheduler{},
	})
	defer ctrl.Dispose()

	boundary := recovery.NewBoundary(ctrl, func(ctx context.Context) (string, error) {
		fences, err := api.ListFences(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d fences", len(fences)), nil
	}, &recovery.Surface{}, nil, "e2e-fence-list")

	if out := boundary.Render(ctx); out != "0 fences" {
		t.Fatalf("Expected healthy render, got %q", out)
	}

	// Take the server down and render again.
	stop()
	time.Sleep(300 * time.Millisecond)

	out := boundary.Render(ctx)
	if !strings.Contains(out, "Connection Problem") {
		t.Fatalf("Expected a network failure surface, got %q", out)
	}
	if snap := ctrl.Snapshot(); snap.Class.Category != recovery.CategoryNetwork {
		t.Fatalf("Expected network category, got %q", snap.Class.Category)
	}
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

type noopScheduler struct{}

func (noopScheduler) Schedule(_ time.Duration, _ func()) recovery.TimerHandle {
	return noopTimer{}
}

package recovery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type staticProbe struct {
	online bool
}

func (p staticProbe) Online(ctx context.Context) bool { return p.online }

// =============================================================================
// End-to-End Boundary Tests
// =============================================================================

func TestBoundary_AutoRecoverEndToEnd(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{Scheduler: sched})
	surface := &Surface{Probe: staticProbe{online: true}}

	// A subtree that throws "Service unavailable" exactly once.
	failures := 1
	render := func(ctx context.Context) (string, error) {
		if failures > 0 {
			failures--
			return "", errors.New("Service unavailable")
		}
		return "fence list: 3 fences", nil
	}

	b := NewBoundary(ctrl, render, surface, nil, "FenceList")
	ctx := context.Background()

	out := b.Render(ctx)
	if !strings.Contains(out, "Something Went Wrong") {
		t.Errorf("expected recovery surface, got %q", out)
	}

	call := sched.last()
	if call == nil {
		t.Fatal("expected an auto retry to be scheduled")
	}
	if call.delay != 1*time.Second {
		t.Errorf("expected 1s delay, got %v", call.delay)
	}

	call.fn()

	out = b.Render(ctx)
	if out != "fence list: 3 fences" {
		t.Errorf("expected normal output after auto retry, got %q", out)
	}
	if got := ctrl.Snapshot().RetryCount; got != 1 {
		t.Errorf("expected retryCount 1, got %d", got)
	}
}

func TestBoundary_RetryExhaustion(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{MaxRetries: 3, Scheduler: sched})
	surface := &Surface{Probe: staticProbe{}}

	render := func(ctx context.Context) (string, error) {
		return "", errors.New("Service unavailable")
	}

	b := NewBoundary(ctrl, render, surface, nil, "FenceList")
	ctx := context.Background()

	// Each render captures, each fire clears; the subtree keeps failing.
	for i := 0; i < 3; i++ {
		b.Render(ctx)
		sched.last().fn()
	}

	// Fourth failure: budget spent, no further timer, surface persists.
	out := b.Render(ctx)
	if sched.count() != 3 {
		t.Errorf("expected 3 timers total, got %d", sched.count())
	}
	if !strings.Contains(out, "Something Went Wrong") {
		t.Errorf("expected recovery surface, got %q", out)
	}
	if !strings.Contains(out, "Retries: 3/3") {
		t.Errorf("expected retry counter in surface, got %q", out)
	}

	// The surface stays up across renders with no state change.
	again := b.Render(ctx)
	if again != out {
		t.Error("expected a stable surface once exhausted")
	}
}

func TestBoundary_CustomFallback(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{Scheduler: sched})

	render := func(ctx context.Context) (string, error) {
		return "", errors.New("Authentication session expired")
	}

	var gotErr error
	fallback := func(err error, retry func()) string {
		gotErr = err
		retry()
		return "custom surface"
	}

	b := NewBoundary(ctrl, render, nil, fallback, "Settings")

	out := b.Render(context.Background())
	if out != "custom surface" {
		t.Errorf("expected custom fallback output, got %q", out)
	}
	if gotErr == nil || gotErr.Error() != "Authentication session expired" {
		t.Errorf("fallback received wrong error: %v", gotErr)
	}

	// The fallback invoked retry, so the controller resumed.
	if ctrl.Failed() {
		t.Error("expected controller healthy after fallback retry")
	}
}

// =============================================================================
// Surface Tests
// =============================================================================

func TestSurface_AuthShowsSignIn(t *testing.T) {
	s := &Surface{Probe: staticProbe{online: true}}
	snap := Snapshot{
		HasFailed:  true,
		LastError:  errors.New("Authentication session expired"),
		Class:      Classify("Authentication session expired"),
		MaxRetries: 3,
	}

	out := s.Render(context.Background(), snap)
	if !strings.Contains(out, "Session Problem") {
		t.Errorf("expected auth title, got %q", out)
	}
	if !strings.Contains(out, "Sign In Again") {
		t.Error("expected sign-in action for auth category")
	}
	if !strings.Contains(out, "Network: online") {
		t.Error("expected connectivity indicator")
	}
	if strings.Contains(out, "Retries:") {
		t.Error("retry counter must be hidden at retryCount 0")
	}
}

func TestSurface_NetworkHidesSignIn(t *testing.T) {
	s := &Surface{Probe: staticProbe{online: false}}
	snap := Snapshot{
		HasFailed:  true,
		LastError:  errors.New("network error"),
		Class:      Classify("network error"),
		RetryCount: 2,
		MaxRetries: 3,
	}

	out := s.Render(context.Background(), snap)
	if !strings.Contains(out, "Connection Problem") {
		t.Errorf("expected network title, got %q", out)
	}
	if strings.Contains(out, "Sign In Again") {
		t.Error("sign-in action must be auth-only")
	}
	if !strings.Contains(out, "Network: offline") {
		t.Error("expected offline indicator")
	}
	if !strings.Contains(out, "Retries: 2/3") {
		t.Error("expected retry counter once retryCount > 0")
	}
}

func TestSurface_TryAgainDisabledWhileRetrying(t *testing.T) {
	s := &Surface{Probe: staticProbe{}}
	snap := Snapshot{
		HasFailed:    true,
		LastError:    errors.New("Service unavailable"),
		Class:        Classify("Service unavailable"),
		AutoRetrying: true,
		MaxRetries:   3,
	}

	out := s.Render(context.Background(), snap)
	if !strings.Contains(out, "Try Again (disabled while retrying)") {
		t.Errorf("expected disabled Try Again, got %q", out)
	}
}

func TestSurface_DebugPanel(t *testing.T) {
	snap := Snapshot{
		HasFailed: true,
		LastError: errors.New("boom"),
		Info:      ErrorInfo{ComponentTrace: "FenceList"},
		Class:     Classify("boom"),
	}

	prod := (&Surface{Probe: staticProbe{}}).Render(context.Background(), snap)
	if strings.Contains(prod, "Error details") {
		t.Error("diagnostics must be hidden outside debug builds")
	}

	dbg := (&Surface{Probe: staticProbe{}, Debug: true}).Render(context.Background(), snap)
	if !strings.Contains(dbg, "boom") || !strings.Contains(dbg, "FenceList") {
		t.Errorf("expected raw error and component trace in debug panel, got %q", dbg)
	}
}

package recovery

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Fake Scheduler
// =============================================================================

type fakeTimer struct {
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type scheduledCall struct {
	delay time.Duration
	fn    func()
	timer *fakeTimer
}

// fakeScheduler records scheduled callbacks without sleeping. Firing a
// call even after Stop lets tests verify that stale fires are no-ops.
type fakeScheduler struct {
	mu    sync.Mutex
	calls []*scheduledCall
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &scheduledCall{delay: d, fn: fn, timer: &fakeTimer{}}
	s.calls = append(s.calls, c)
	return c.timer
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeScheduler) last() *scheduledCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

var errServiceUnavailable = errors.New("Service unavailable")

// =============================================================================
// State Machine Tests
// =============================================================================

func TestCanTransition(t *testing.T) {
	valid := []struct{ from, to State }{
		{StateHealthy, StateFailed},
		{StateFailed, StateRetryScheduled},
		{StateFailed, StateHealthy},
		{StateRetryScheduled, StateHealthy},
	}
	for _, v := range valid {
		if !CanTransition(v.from, v.to) {
			t.Errorf("expected %s -> %s to be valid", v.from, v.to)
		}
	}

	invalid := []struct{ from, to State }{
		{StateHealthy, StateRetryScheduled},
		{StateHealthy, StateHealthy},
		{StateRetryScheduled, StateFailed},
		{StateRetryScheduled, StateRetryScheduled},
		{StateFailed, StateFailed},
	}
	for _, v := range invalid {
		if CanTransition(v.from, v.to) {
			t.Errorf("expected %s -> %s to be invalid", v.from, v.to)
		}
	}
}

// =============================================================================
// Controller Tests
// =============================================================================

func TestController_CaptureSchedulesRetry(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{MaxRetries: 5, Scheduler: sched})

	// Cycle capture -> fire a few times; each capture must schedule
	// exactly one timer keyed on the pre-increment retry count.
	expectedDelays := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	for i, want := range expectedDelays {
		ctrl.Capture(errServiceUnavailable, ErrorInfo{ComponentTrace: "FenceList"})

		if sched.count() != i+1 {
			t.Fatalf("expected %d scheduled timers, got %d", i+1, sched.count())
		}
		call := sched.last()
		if call.delay != want {
			t.Errorf("capture %d: expected delay %v, got %v", i, want, call.delay)
		}

		snap := ctrl.Snapshot()
		if !snap.HasFailed || !snap.AutoRetrying {
			t.Errorf("capture %d: expected failed+retrying, got %+v", i, snap)
		}
		if snap.State != StateRetryScheduled {
			t.Errorf("capture %d: expected state %s, got %s", i, StateRetryScheduled, snap.State)
		}

		call.fn()

		snap = ctrl.Snapshot()
		if snap.HasFailed || snap.AutoRetrying {
			t.Errorf("fire %d: expected healthy, got %+v", i, snap)
		}
		if snap.LastError != nil {
			t.Errorf("fire %d: expected lastError cleared", i)
		}
		if snap.RetryCount != i+1 {
			t.Errorf("fire %d: expected retryCount %d, got %d", i, i+1, snap.RetryCount)
		}
	}
}

func TestController_NonRetryableNeverSchedules(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{Scheduler: sched})

	ctrl.Capture(errors.New("Authentication session expired"), ErrorInfo{})

	if sched.count() != 0 {
		t.Fatalf("expected no timer, got %d", sched.count())
	}

	snap := ctrl.Snapshot()
	if !snap.HasFailed || snap.AutoRetrying {
		t.Errorf("expected failed without retry, got %+v", snap)
	}
	if snap.State != StateFailed {
		t.Errorf("expected state %s, got %s", StateFailed, snap.State)
	}
	if snap.Class.Category != CategoryAuth {
		t.Errorf("expected auth category, got %s", snap.Class.Category)
	}
}

func TestController_RetryBudgetExhausted(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{MaxRetries: 3, Scheduler: sched})

	// Spend the budget.
	for i := 0; i < 3; i++ {
		ctrl.Capture(errServiceUnavailable, ErrorInfo{})
		sched.last().fn()
	}

	if got := ctrl.Snapshot().RetryCount; got != 3 {
		t.Fatalf("expected retryCount 3, got %d", got)
	}

	// Fourth capture: retryable message, but no timer may be scheduled.
	ctrl.Capture(errServiceUnavailable, ErrorInfo{})

	if sched.count() != 3 {
		t.Errorf("expected no new timer, got %d total", sched.count())
	}

	snap := ctrl.Snapshot()
	if !snap.HasFailed || snap.AutoRetrying {
		t.Errorf("expected terminal failed state, got %+v", snap)
	}
	if snap.State != StateFailed {
		t.Errorf("expected state %s, got %s", StateFailed, snap.State)
	}
}

func TestController_ManualRetryCancelsTimer(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{Scheduler: sched})

	ctrl.Capture(errServiceUnavailable, ErrorInfo{})
	call := sched.last()

	ctrl.Retry()

	if !call.timer.stopped {
		t.Error("expected pending timer to be stopped")
	}

	snap := ctrl.Snapshot()
	if snap.HasFailed || snap.AutoRetrying {
		t.Errorf("expected healthy after manual retry, got %+v", snap)
	}
	if snap.RetryCount != 0 {
		t.Errorf("manual retry must not change retryCount, got %d", snap.RetryCount)
	}

	// A stale fire must be a no-op.
	call.fn()

	snap = ctrl.Snapshot()
	if snap.RetryCount != 0 {
		t.Errorf("stale fire must not increment retryCount, got %d", snap.RetryCount)
	}
	if snap.HasFailed {
		t.Error("stale fire must not mutate state")
	}
}

func TestController_ManualRetryClearsAutoRetrying(t *testing.T) {
	// The delay-window symmetry: a manual retry while a retry is
	// pending clears isAutoRetrying, so Try Again re-enables.
	sched := &fakeScheduler{}
	ctrl := NewController(Options{Scheduler: sched})

	ctrl.Capture(errServiceUnavailable, ErrorInfo{})
	if !ctrl.Snapshot().AutoRetrying {
		t.Fatal("expected AutoRetrying during delay window")
	}

	ctrl.Retry()
	if ctrl.Snapshot().AutoRetrying {
		t.Error("expected AutoRetrying cleared by manual retry")
	}
}

func TestController_ManualRetryIdempotent(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{Scheduler: sched})

	ctrl.Capture(errors.New("boom"), ErrorInfo{})

	ctrl.Retry()
	first := ctrl.Snapshot()
	ctrl.Retry()
	second := ctrl.Snapshot()

	if first != second {
		t.Errorf("expected identical snapshots, got %+v vs %+v", first, second)
	}
}

func TestController_DisposePreventsLateFire(t *testing.T) {
	sched := &fakeScheduler{}
	var changes []Transition
	ctrl := NewController(Options{
		Scheduler: sched,
		OnChange:  func(tr Transition) { changes = append(changes, tr) },
	})

	ctrl.Capture(errServiceUnavailable, ErrorInfo{})
	call := sched.last()
	before := len(changes)

	ctrl.Dispose()

	if !call.timer.stopped {
		t.Error("expected dispose to stop the pending timer")
	}

	// Even if the callback still runs, it must not mutate state or
	// invoke callbacks.
	call.fn()

	if len(changes) != before {
		t.Errorf("late fire invoked OnChange: %d -> %d", before, len(changes))
	}
	if got := ctrl.Snapshot().RetryCount; got != 0 {
		t.Errorf("late fire mutated retryCount: %d", got)
	}
}

func TestController_CaptureWhileFailedIsNoOp(t *testing.T) {
	sched := &fakeScheduler{}
	onErrorCalls := 0
	ctrl := NewController(Options{
		Scheduler: sched,
		OnError:   func(err error, info ErrorInfo) { onErrorCalls++ },
	})

	first := errors.New("Authentication session expired")
	ctrl.Capture(first, ErrorInfo{})
	ctrl.Capture(errors.New("something else"), ErrorInfo{})

	if onErrorCalls != 1 {
		t.Errorf("expected onError once per failure, got %d", onErrorCalls)
	}
	if got := ctrl.Snapshot().LastError; got != first {
		t.Errorf("second capture must not replace lastError, got %v", got)
	}
}

func TestController_OnErrorPanicAbsorbed(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{
		Scheduler: sched,
		OnError:   func(err error, info ErrorInfo) { panic("hook gone wrong") },
	})

	ctrl.Capture(errServiceUnavailable, ErrorInfo{})

	// The capture transition must have completed despite the panic.
	snap := ctrl.Snapshot()
	if !snap.HasFailed || !snap.AutoRetrying {
		t.Errorf("capture transition incomplete after hook panic: %+v", snap)
	}
}

func TestController_ResetZeroesBudget(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(Options{MaxRetries: 2, Scheduler: sched})

	for i := 0; i < 2; i++ {
		ctrl.Capture(errServiceUnavailable, ErrorInfo{})
		sched.last().fn()
	}
	if got := ctrl.Snapshot().RetryCount; got != 2 {
		t.Fatalf("expected retryCount 2, got %d", got)
	}

	ctrl.Reset()

	snap := ctrl.Snapshot()
	if snap.RetryCount != 0 {
		t.Errorf("expected retryCount 0 after reset, got %d", snap.RetryCount)
	}
	if snap.HasFailed {
		t.Error("expected healthy after reset")
	}

	// Budget is available again.
	ctrl.Capture(errServiceUnavailable, ErrorInfo{})
	if sched.last().delay != 1*time.Second {
		t.Errorf("expected backoff restarted at 1s, got %v", sched.last().delay)
	}
}

package recovery

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/vietddude/fencer/internal/metrics"
)

// DefaultMaxRetries is the automatic retry budget unless configured.
const DefaultMaxRetries = 3

// ErrorInfo carries contextual metadata captured alongside an error.
type ErrorInfo struct {
	// ComponentTrace identifies the wrapped subtree that failed.
	ComponentTrace string
}

// Options configures a Controller. All fields are optional.
type Options struct {
	// MaxRetries caps automatic retries. Defaults to DefaultMaxRetries.
	MaxRetries int

	// OnError is a diagnostic hook invoked once per capture. It must
	// not be assumed to mutate controller state; a panic inside it is
	// absorbed and never blocks the capture transition.
	OnError func(err error, info ErrorInfo)

	// Scheduler provides the retry timer. Defaults to SystemScheduler.
	Scheduler Scheduler

	// OnChange is invoked after every state transition, outside the
	// controller lock.
	OnChange func(t Transition)
}

// Snapshot is a point-in-time copy of the controller state, safe to
// hand to renderers.
type Snapshot struct {
	State        State
	HasFailed    bool
	LastError    error
	Info         ErrorInfo
	Class        Classification
	RetryCount   int
	MaxRetries   int
	AutoRetrying bool
}

// Controller owns the recovery state machine for one wrapped subtree.
// It captures failures, classifies them, schedules bounded automatic
// retries, and exposes manual recovery. Transitions are serialized by
// an internal mutex; at most one retry timer is ever pending.
type Controller struct {
	opts Options

	mu        sync.Mutex
	state     State
	lastError error
	lastInfo  ErrorInfo
	lastClass Classification
	// retryCount is monotonic until Reset: automatic fires increment
	// it, manual retry never changes it.
	retryCount int
	pending    TimerHandle
	// gen invalidates in-flight timer callbacks: a fire whose
	// generation no longer matches is a no-op.
	gen      uint64
	disposed bool
}

// NewController creates a controller in the Healthy state.
func NewController(opts Options) *Controller {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler()
	}
	return &Controller{
		opts:  opts,
		state: StateHealthy,
	}
}

// Capture records an unhandled failure from the wrapped subtree. It is
// one-shot per failure: while the controller is already failed,
// further captures are no-ops (including the OnError side effect).
// If the error is retryable and the retry budget is not spent, exactly
// one automatic retry is scheduled with delay RetryDelay(retryCount).
func (c *Controller) Capture(err error, info ErrorInfo) {
	if err == nil {
		return
	}

	c.mu.Lock()
	if c.disposed || c.state != StateHealthy {
		c.mu.Unlock()
		return
	}

	cls := Classify(err.Error())
	c.lastError = err
	c.lastInfo = info
	c.lastClass = cls

	transitions := []Transition{c.setStateLocked(StateFailed, "failure captured")}

	exhausted := false
	if cls.Retryable {
		if c.retryCount < c.opts.MaxRetries {
			// At most one outstanding retry: any prior timer goes first.
			c.cancelPendingLocked()
			delay := RetryDelay(c.retryCount)
			c.gen++
			gen := c.gen
			c.pending = c.opts.Scheduler.Schedule(delay, func() {
				c.fire(gen)
			})
			transitions = append(
				transitions,
				c.setStateLocked(StateRetryScheduled, "auto retry scheduled"),
			)
		} else {
			exhausted = true
		}
	}
	onError := c.opts.OnError
	c.mu.Unlock()

	slog.Error("Recovery controller captured failure",
		"error", err,
		"component", info.ComponentTrace,
		"category", cls.Category,
		"retryable", cls.Retryable,
	)
	metrics.RecoveryCaptures.WithLabelValues(
		string(cls.Category), strconv.FormatBool(cls.Retryable),
	).Inc()
	if exhausted {
		metrics.RecoveryExhaustions.Inc()
	}

	if onError != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("Recovery onError hook panicked", "panic", r)
				}
			}()
			onError(err, info)
		}()
	}

	c.notify(transitions)
}

// fire is the timer callback: it clears the failure and increments the
// retry count. This is the only path that increments retryCount. Fires
// whose generation was invalidated by cancel, manual retry, or
// disposal are no-ops.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.disposed || gen != c.gen || c.state != StateRetryScheduled {
		c.mu.Unlock()
		return
	}

	c.pending = nil
	c.lastError = nil
	c.lastInfo = ErrorInfo{}
	c.retryCount++
	t := c.setStateLocked(StateHealthy, "auto retry fired")
	c.mu.Unlock()

	metrics.RecoveryAutoRetries.Inc()
	c.notify([]Transition{t})
}

// Retry performs manual recovery: it cancels any pending automatic
// retry, clears the failure, and returns the controller to Healthy.
// retryCount is deliberately left unchanged. Invoking Retry while
// already Healthy (or after disposal) is a no-op.
func (c *Controller) Retry() {
	c.mu.Lock()
	if c.disposed || c.state == StateHealthy {
		c.mu.Unlock()
		return
	}

	c.cancelPendingLocked()
	c.lastError = nil
	c.lastInfo = ErrorInfo{}
	t := c.setStateLocked(StateHealthy, "manual retry")
	c.mu.Unlock()

	metrics.RecoveryManualRetries.Inc()
	c.notify([]Transition{t})
}

// Reset is the external remount equivalent: manual recovery plus a
// retry budget reset.
func (c *Controller) Reset() {
	c.Retry()

	c.mu.Lock()
	c.retryCount = 0
	c.mu.Unlock()
}

// Dispose cancels any pending retry and makes every further call a
// no-op. A timer that somehow still fires after disposal must not
// mutate state or invoke callbacks; the generation check guarantees
// that.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelPendingLocked()
	c.disposed = true
}

// Failed reports whether a failure is currently captured.
func (c *Controller) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateHealthy
}

// Snapshot returns a point-in-time copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		State:        c.state,
		HasFailed:    c.state != StateHealthy,
		LastError:    c.lastError,
		Info:         c.lastInfo,
		Class:        c.lastClass,
		RetryCount:   c.retryCount,
		MaxRetries:   c.opts.MaxRetries,
		AutoRetrying: c.state == StateRetryScheduled,
	}
}

// cancelPendingLocked stops the pending timer, if any, and bumps the
// generation so an already-running callback becomes a no-op. Safe to
// call with no pending timer.
func (c *Controller) cancelPendingLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.gen++
}

func (c *Controller) setStateLocked(to State, reason string) Transition {
	t := NewTransition(c.state, to, reason)
	if !t.IsValid() {
		// Transitions are driven by guarded paths above; an invalid
		// one is a bug worth surfacing, not silently applying.
		slog.Warn("Invalid recovery state transition",
			"from", t.From, "to", t.To, "reason", reason)
		return t
	}
	c.state = to
	return t
}

func (c *Controller) notify(transitions []Transition) {
	if c.opts.OnChange == nil {
		return
	}
	for _, t := range transitions {
		c.opts.OnChange(t)
	}
}

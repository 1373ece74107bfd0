package recovery

import (
	"context"
	"net/http"
	"time"
)

// TimerHandle is an opaque handle for a scheduled retry. Stop is
// idempotent: stopping an already-fired or already-stopped timer is a
// no-op.
type TimerHandle interface {
	Stop() bool
}

// Scheduler abstracts the host timer primitive so the controller is
// testable without real sleeps.
type Scheduler interface {
	// Schedule runs fn once after delay and returns a cancellable handle.
	Schedule(delay time.Duration, fn func()) TimerHandle
}

// ConnectivityProbe abstracts the host connectivity signal. The
// surface reads it once per render.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}

// Navigator abstracts the host navigation primitives used by the
// terminal escape actions. Both hand control to the host environment;
// the controller's own state machine is bypassed entirely.
type Navigator interface {
	// Reload performs a full application reload.
	Reload() error
	// SignIn redirects to the sign-in entry point.
	SignIn() error
}

type systemTimer struct {
	t *time.Timer
}

func (h systemTimer) Stop() bool {
	return h.t.Stop()
}

type systemScheduler struct{}

func (systemScheduler) Schedule(delay time.Duration, fn func()) TimerHandle {
	return systemTimer{t: time.AfterFunc(delay, fn)}
}

// SystemScheduler returns a Scheduler backed by time.AfterFunc.
func SystemScheduler() Scheduler {
	return systemScheduler{}
}

// HTTPProbe reports connectivity by probing an endpoint over HTTP.
type HTTPProbe struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPProbe creates a probe against the given endpoint.
func NewHTTPProbe(endpoint string, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Online performs a single HEAD request. Any response, regardless of
// status code, counts as online; only transport failure counts as
// offline.
func (p *HTTPProbe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

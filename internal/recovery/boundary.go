package recovery

import "context"

// RenderFunc produces the wrapped subtree's output. Returning an error
// is the explicit error channel: the boundary feeds it to the
// controller instead of relying on panic unwinding.
type RenderFunc func(ctx context.Context) (string, error)

// Boundary wraps a render function with a Controller. While the
// controller is healthy the subtree's output passes through; a render
// error is captured and replaced by the recovery surface (or the
// custom fallback). Errors never propagate past the boundary.
type Boundary struct {
	ctrl      *Controller
	render    RenderFunc
	surface   *Surface
	fallback  FallbackFunc
	component string
}

// NewBoundary wraps render with ctrl. component names the subtree for
// diagnostics. fallback may be nil, in which case surface is used.
func NewBoundary(
	ctrl *Controller,
	render RenderFunc,
	surface *Surface,
	fallback FallbackFunc,
	component string,
) *Boundary {
	return &Boundary{
		ctrl:      ctrl,
		render:    render,
		surface:   surface,
		fallback:  fallback,
		component: component,
	}
}

// Controller exposes the wrapped controller for manual actions.
func (b *Boundary) Controller() *Controller {
	return b.ctrl
}

// Render runs the wrapped subtree if healthy, capturing any failure,
// and otherwise renders the recovery surface. The user is never left
// blank: a failed render always yields an actionable surface.
func (b *Boundary) Render(ctx context.Context) string {
	if !b.ctrl.Failed() {
		out, err := b.render(ctx)
		if err == nil {
			return out
		}
		b.ctrl.Capture(err, ErrorInfo{ComponentTrace: b.component})
	}

	snap := b.ctrl.Snapshot()
	if b.fallback != nil {
		return b.fallback(snap.LastError, b.ctrl.Retry)
	}
	return b.surface.Render(ctx, snap)
}

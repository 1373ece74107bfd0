package recovery

import (
	"context"
	"fmt"
	"strings"
)

// FallbackFunc overrides the default recovery surface. It receives the
// captured error and the controller's manual-retry transition; a
// custom surface may render anything but must call retry to resume.
type FallbackFunc func(err error, retry func()) string

// Surface renders the default recovery UI for a failed controller.
// The connectivity probe is read once per render.
type Surface struct {
	Probe ConnectivityProbe
	// Debug enables the diagnostic details panel (raw error text and
	// component trace). Off in production builds.
	Debug bool
}

func categoryCopy(cat Category) (title, body string) {
	switch cat {
	case CategoryNetwork:
		return "Connection Problem",
			"We're having trouble reaching the server. Check your connection and try again."
	case CategoryAuth:
		return "Session Problem",
			"Your session may have expired. Sign in again to continue."
	default:
		return "Something Went Wrong",
			"An unexpected error occurred. You can retry or reload."
	}
}

// Render produces the recovery surface for the given snapshot.
func (s *Surface) Render(ctx context.Context, snap Snapshot) string {
	title, body := categoryCopy(snap.Class.Category)

	online := false
	if s.Probe != nil {
		online = s.Probe.Online(ctx)
	}
	connectivity := "offline"
	if online {
		connectivity = "online"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", title, body)
	fmt.Fprintf(&b, "Network: %s\n", connectivity)

	if snap.AutoRetrying {
		fmt.Fprintf(&b, "Retrying automatically...\n")
	}

	if snap.RetryCount > 0 {
		fmt.Fprintf(&b, "Retries: %d/%d\n", snap.RetryCount, snap.MaxRetries)
	}

	b.WriteString("\nActions:\n")
	if snap.AutoRetrying {
		b.WriteString("  [r] Try Again (disabled while retrying)\n")
	} else {
		b.WriteString("  [r] Try Again\n")
	}
	if snap.Class.Category == CategoryAuth {
		b.WriteString("  [s] Sign In Again\n")
	}
	b.WriteString("  [l] Reload\n")

	if s.Debug && snap.LastError != nil {
		fmt.Fprintf(&b, "\nError details (debug):\n  %s\n", snap.LastError.Error())
		if snap.Info.ComponentTrace != "" {
			fmt.Fprintf(&b, "  component: %s\n", snap.Info.ComponentTrace)
		}
	}

	return b.String()
}

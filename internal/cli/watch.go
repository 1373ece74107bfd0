package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fencer/internal/client"
	"github.com/vietddude/fencer/internal/recovery"
)

var (
	watchServer   string
	watchEmail    string
	watchPassword string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch your fences in the terminal, with automatic failure recovery",
	Long: `Watch polls the fence list and redraws it on an interval. Failures
are classified and recovered automatically where possible; the rest
surface as an actionable recovery screen (retry, sign in, reload).`,
	Run: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchServer, "server", "http://localhost:8080", "API server base URL")
	watchCmd.Flags().StringVar(&watchEmail, "email", "", "account email (falls back to FENCER_EMAIL)")
	watchCmd.Flags().StringVar(&watchPassword, "password", "", "account password (falls back to FENCER_PASSWORD)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "poll interval")
	rootCmd.AddCommand(watchCmd)
}

// watchNavigator implements the terminal escape actions for the watch
// session: reload restarts the session in place, sign-in re-runs the
// login exchange.
type watchNavigator struct {
	api      *client.Client
	email    string
	password string
}

func (n *watchNavigator) SignIn() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := n.api.Login(ctx, n.email, n.password)
	return err
}

func (n *watchNavigator) Reload() error {
	n.api.SetTokens("", "")
	return n.SignIn()
}

func runWatch(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	email := watchEmail
	if email == "" {
		email = os.Getenv("FENCER_EMAIL")
	}
	password := watchPassword
	if password == "" {
		password = os.Getenv("FENCER_PASSWORD")
	}
	if email == "" || password == "" {
		slog.Error("Missing credentials", "hint", "pass --email/--password or set FENCER_EMAIL/FENCER_PASSWORD")
		os.Exit(1)
	}

	api := client.New(watchServer, 10*time.Second)
	defer func() {
		_ = api.Close()
	}()

	nav := &watchNavigator{api: api, email: email, password: password}
	if err := nav.SignIn(); err != nil {
		slog.Error("Login failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Logged in", "server", watchServer, "email", email)

	ctrl := recovery.NewController(recovery.Options{
		MaxRetries: cfg.Recovery.MaxRetries,
		OnError: func(err error, info recovery.ErrorInfo) {
			slog.Warn("Render failed", "component", info.ComponentTrace, "error", err)
		},
		OnChange: func(t recovery.Transition) {
			slog.Debug("Recovery transition", "from", t.From, "to", t.To, "reason", t.Reason)
		},
	})
	defer ctrl.Dispose()

	surface := &recovery.Surface{
		Probe: recovery.NewHTTPProbe(watchServer+"/health", 2*time.Second),
		Debug: isDebug,
	}

	boundary := recovery.NewBoundary(ctrl, func(ctx context.Context) (string, error) {
		return renderFences(ctx, api)
	}, surface, nil, "fence-list")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	keys := make(chan string)
	go readKeys(ctx, keys)

	draw := func() {
		fmt.Print("\033[H\033[2J")
		fmt.Println(boundary.Render(ctx))
		fmt.Println("[r] retry  [s] sign in  [l] reload  [q] quit")
	}
	draw()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			slog.Info("Shutting down watch")
			return
		case <-ticker.C:
			draw()
		case key := <-keys:
			if handleKey(ctx, key, ctrl, nav) {
				return
			}
			draw()
		}
	}
}

// handleKey applies one keypress. Returns true when the session should
// end.
func handleKey(ctx context.Context, key string, ctrl *recovery.Controller, nav recovery.Navigator) bool {
	snap := ctrl.Snapshot()

	switch key {
	case "q":
		return true
	case "r":
		// Manual retry is unavailable while an automatic retry is
		// already scheduled.
		if snap.AutoRetrying {
			slog.Debug("Manual retry ignored, automatic retry pending")
			return false
		}
		ctrl.Retry()
	case "s":
		if err := nav.SignIn(); err != nil {
			slog.Warn("Sign in failed", "error", err)
			return false
		}
		ctrl.Reset()
	case "l":
		if err := nav.Reload(); err != nil {
			slog.Warn("Reload failed", "error", err)
			return false
		}
		ctrl.Reset()
	}
	return false
}

func readKeys(ctx context.Context, keys chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		key := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if key == "" {
			continue
		}
		select {
		case keys <- key:
		case <-ctx.Done():
			return
		}
	}
}

// renderFences is the watched subtree: it fetches the fence list and
// formats it. Any error is returned to the boundary, never printed.
func renderFences(ctx context.Context, api *client.Client) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	fences, err := api.ListFences(reqCtx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fences (%d)  %s\n\n", len(fences), time.Now().Format(time.TimeOnly))

	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tCENTER\tRADIUS\tHYSTERESIS")
	for _, f := range fences {
		fmt.Fprintf(w, "%s\t%.5f,%.5f\t%.0fm\t%.0fm\n",
			f.Name, f.Latitude, f.Longitude, f.RadiusM, f.HysteresisM)
	}
	_ = w.Flush()

	stats := api.Stats()
	fmt.Fprintf(&b, "\nrequests ok=%d failed=%d", stats.SuccessCount, stats.FailureCount)
	return b.String(), nil
}

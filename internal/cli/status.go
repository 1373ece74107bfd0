package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/fencer/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage counts for the configured database",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	queries := []struct {
		label string
		query string
	}{
		{"users", "SELECT COUNT(*) FROM users"},
		{"fences", "SELECT COUNT(*) FROM fences WHERE deleted_at IS NULL"},
		{"fences (soft-deleted)", "SELECT COUNT(*) FROM fences WHERE deleted_at IS NOT NULL"},
		{"members", "SELECT COUNT(*) FROM fence_members"},
		{"sessions (active)", "SELECT COUNT(*) FROM sessions WHERE NOT revoked AND expires_at > now()"},
		{"audit events", "SELECT COUNT(*) FROM audit_events"},
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TABLE\tCOUNT")

	for _, q := range queries {
		var count int64
		if err := db.GetContext(ctx, &count, q.query); err != nil {
			slog.Warn("Failed to count", "table", q.label, "error", err)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\n", q.label, count)
	}
	_ = w.Flush()
}

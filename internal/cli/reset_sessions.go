package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/fencer/internal/infra/storage/postgres"
)

var resetSessionsCmd = &cobra.Command{
	Use:   "reset-sessions [email]",
	Short: "Revoke all active sessions for a user, forcing re-login",
	Args:  cobra.ExactArgs(1),
	Run:   runResetSessions,
}

func init() {
	rootCmd.AddCommand(resetSessionsCmd)
}

func runResetSessions(cmd *cobra.Command, args []string) {
	email := args[0]
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

	// Direct SQL keeps this admin override independent of the API path.
	res, err := db.ExecContext(ctx, `
		UPDATE sessions SET revoked = TRUE
		WHERE NOT revoked AND user_id = (SELECT id FROM users WHERE email = $1)`,
		email,
	)
	if err != nil {
		slog.Error("Failed to revoke sessions", "error", err)
		os.Exit(1)
	}

	n, _ := res.RowsAffected()
	fmt.Printf("Revoked %d session(s) for %s\n", n, email)
}

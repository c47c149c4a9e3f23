package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/duelhub/debate-dueler/internal/config"
)

func newMigrateCmd() *cobra.Command {
	var (
		command string
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run deck archive migrations (up, down, status)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Postgres.Enabled() {
				return fmt.Errorf("PG_HOST must be set to run migrations")
			}

			migrationDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolve migration directory %s: %w", dir, err)
			}
			if _, err := os.Stat(migrationDir); os.IsNotExist(err) {
				return fmt.Errorf("migration directory %s does not exist", migrationDir)
			}

			db, err := sql.Open("pgx", cfg.Postgres.DSN())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := goose.SetDialect("postgres"); err != nil {
				return fmt.Errorf("set dialect: %w", err)
			}

			switch command {
			case "up":
				return goose.Up(db, migrationDir)
			case "down":
				return goose.Down(db, migrationDir)
			case "status":
				return goose.Status(db, migrationDir)
			default:
				return fmt.Errorf("unknown migration command %q", command)
			}
		},
	}

	cmd.Flags().StringVar(&command, "command", "up", "Migration command: up, down, or status")
	cmd.Flags().StringVar(&dir, "dir", "db/migrations", "Directory containing migration files")
	return cmd
}

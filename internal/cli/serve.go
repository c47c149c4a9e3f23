package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/duelhub/debate-dueler/internal/app"
	"github.com/duelhub/debate-dueler/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			cfg, err := config.Load(loadCtx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			instance, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			return instance.Run(cmd.Context())
		},
	}
}

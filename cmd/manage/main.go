package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/app"
	"github.com/qs3c/pec_go_server/internal/database"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "manage",
		Short:         "Maintenance commands for the recipe and blog backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("CONFIG_PATH", "config.yaml"), "config file")

	root.AddCommand(migrateCmd(), createStaffCmd(), reindexCmd(), sweepAvatarsCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Base().WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setup 加载配置并组装依赖，调用方负责 Close
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Setup(&cfg.Log)
	return app.New(ctx, cfg)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := database.Migrate(a.DB); err != nil {
				return err
			}
			logger.For(cmd.Context()).Info("migration complete")
			return nil
		},
	}
}

func createStaffCmd() *cobra.Command {
	var email, password, firstName string

	cmd := &cobra.Command{
		Use:   "createstaff",
		Short: "Create a staff account or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || len(password) < 8 {
				return errors.New("--email and a --password of at least 8 characters are required")
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.Auth.CreateStaff(cmd.Context(), email, password, firstName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "staff account %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&firstName, "first-name", "", "display name")
	return cmd
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Recount comments and rebuild every search record",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			count, err := a.Index.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d objects reindexed\n", count)
			return nil
		},
	}
}

func sweepAvatarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-avatars",
		Short: "Delete fetched avatars no longer referenced by any user or comment",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.AvatarSweeper().SweepAvatars(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d orphan avatars removed\n", removed)
			return nil
		},
	}
}

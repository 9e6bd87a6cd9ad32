package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookwell/customer-sync/internal/config"
	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single sync pass and exit",
	Long: `Run a single sync pass and exit.

The pass is subject to the same run window and run guard as server-triggered
passes. Use --force to bypass both, for example when re-running a sync
outside the daily window.`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	runCmd.Flags().Bool("force", false, "Bypass the run window and once-per-day guard")
	runCmd.Flags().Bool("dry-run", false, "Fetch and match customers without writing to the board")

	if err := runCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if dryRun {
		cfg.Sync.DryRun = true
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(ctx); err != nil {
			logger.Errorf("Failed to shut down telemetry: %v", err)
		}
	}()

	components, err := buildSyncComponents(ctx, cfg, tel)
	if err != nil {
		return err
	}
	defer components.cleanup()

	outcome, err := components.coordinator.TriggerSync(ctx, force)
	if err != nil {
		return fmt.Errorf("failed to trigger sync: %w", err)
	}

	if !outcome.Triggered {
		logger.Infof("Sync skipped: %s", outcome.Reason)
		return nil
	}
	if outcome.SyncError != nil {
		return fmt.Errorf("sync failed: %w", outcome.SyncError)
	}

	logger.Infof("Sync completed (run: %s, fetched: %d, created: %d, updated: %d, skipped: %d, failed: %d)",
		outcome.Result.RunID, outcome.Result.Fetched, outcome.Result.Created,
		outcome.Result.Updated, outcome.Result.Skipped, outcome.Result.Failed)
	return nil
}

package app

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/bookwell/customer-sync/database"
	"github.com/bookwell/customer-sync/internal/logger"
)

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply pending database migrations to bring the schema up to date.
This command reads the database connection parameters from the config file
and applies all migrations that haven't been run yet.`,
	RunE: runMigrateUp,
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, connString, err := migrationConnectionString(cmd)
	if err != nil {
		return err
	}

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}

	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	if !yes {
		prompt := fmt.Sprintf("About to apply migrations to database: %s@%s:%d/%s. Continue?",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
		if !confirm(prompt) {
			logger.Info("Migration cancelled by user")
			return nil
		}
	}

	m, err := database.NewFromConnectionString(connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	logger.Info("Applying database migrations...")
	if numSteps == 0 {
		err = m.Up()
	} else {
		if numSteps > math.MaxInt {
			return fmt.Errorf("number of steps exceeds maximum allowed value")
		}
		err = m.Steps(int(numSteps)) // #nosec G115 -- overflow checked above
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No pending migrations - database is already up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		logger.Warnf("Unable to get migration version: %v", err)
	} else if dirty {
		logger.Warnf("Database is in a dirty state at version %d", version)
	} else {
		logger.Infof("Migrations applied successfully. Current version: %d", version)
	}

	return nil
}

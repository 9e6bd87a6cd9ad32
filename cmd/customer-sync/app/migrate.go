package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bookwell/customer-sync/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool",
	Long:  `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateCmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate (0 = all)")
	migrateCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := migrateCmd.MarkPersistentFlagRequired("config"); err != nil {
		panic(err)
	}

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// migrationConnectionString loads the configuration named by the --config
// flag and returns the database connection string.
func migrationConnectionString(cmd *cobra.Command) (*config.Config, string, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Database == nil {
		return nil, "", fmt.Errorf("database configuration is required")
	}

	connString, err := cfg.Database.GetConnectionString()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build connection string: %w", err)
	}

	return cfg, connString, nil
}

// confirm prompts the user with the given message and returns whether they
// answered yes.
func confirm(prompt string) bool {
	fmt.Printf("%s (yes/no): ", prompt)
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y"
}

// Package app provides the entry point for the customer sync service.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "customer-sync",
	DisableAutoGenTag: true,
	Short:             "Customer synchronization service",
	Long: `Customer synchronization service pulls newly created customers from the
booking system and upserts them onto the work-management board, guarded by a
daily local-time run window.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the sync service.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			logger.Errorf("Error retrieving format flag: %v", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				logger.Errorf("Error formatting version info as JSON: %v", err)
				return
			}
			fmt.Println(string(output))
		} else {
			logger.Infof("customer-sync version %s (commit: %s, built: %s, go: %s, platform: %s)",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}

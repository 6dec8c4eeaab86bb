package rules

import (
	"github.com/spf13/cobra"

	"github.com/scan-io-git/crnow/pkg/shared/config"
)

// Global variables for configuration and command arguments
var (
	AppConfig *config.Config

	// RulesCmd groups the commands working with the rules folder.
	RulesCmd = &cobra.Command{
		Use:                   "rules [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Manage the rules folder",
	}
)

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func init() {
	RulesCmd.AddCommand(syncCmd)
	RulesCmd.AddCommand(listCmd)
}

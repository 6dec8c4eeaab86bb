package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/crnow/cmd/review"
	"github.com/scan-io-git/crnow/cmd/rules"
	"github.com/scan-io-git/crnow/cmd/version"
	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
	"github.com/scan-io-git/crnow/pkg/shared/files"
)

const defaultConfigFile = "~/.crnow/config.yml"

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "crnow [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "crnow reviews ServiceNow scripts against a set of rules.",
		Long: `crnow fetches scripts from a ServiceNow instance by update set, scoped application,
	time window or an explicit list, reviews them against the rules folder and attributes
	every finding to the developer who last touched the line.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "Path to the crnow config file")

	rootCmd.AddCommand(review.ReviewCmd)
	rootCmd.AddCommand(rules.RulesCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)

		var cmdErr *crnowerrors.CommandError
		if errors.As(err, &cmdErr) {
			return cmdErr.ExitCode
		}
		return 1
	}
	return 0
}

func initConfig() {
	if env := os.Getenv("CRNOW_CONFIG"); env != "" && !rootCmd.PersistentFlags().Changed("config") {
		cfgFile = env
	}
	path, err := files.ExpandPath(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to expand config path %q: %v\n", cfgFile, err)
		os.Exit(1)
	}
	AppConfig, err = config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing config file function is crashed - %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	review.Init(AppConfig)
	rules.Init(AppConfig)
	version.Init(AppConfig)
}

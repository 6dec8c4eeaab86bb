package rules

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/crnow/internal/git"
	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
	"github.com/scan-io-git/crnow/pkg/shared/logger"
)

// RunOptionsSync holds the arguments for the rules sync command.
type RunOptionsSync struct {
	Repository string
	Branch     string
	AuthType   string
	SSHKey     string
}

var (
	syncOptions      RunOptionsSync
	exampleSyncUsage = `  # Mirror the configured rules repository into the rules folder
  crnow rules sync

  # Mirror a private fork over ssh
  crnow rules sync --repository git@github.com:acme/snow-rules.git --auth-type ssh-key --ssh-key ~/.ssh/id_ed25519

  # Mirror a branch over https with a token from CRNOW_GIT_TOKEN
  crnow rules sync --repository https://github.com/acme/snow-rules.git --branch strict --auth-type http`

	syncCmd = &cobra.Command{
		Use:                   "sync [--repository URL] [--branch NAME] [--auth-type TYPE] [--ssh-key PATH]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Example:               exampleSyncUsage,
		Short:                 "Clone or update the rules folder from the rules repository",
		RunE:                  runSyncCommand,
	}
)

func runSyncCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-rules-sync")

	rulesCfg := mergeRulesConfig(AppConfig.Rules, syncOptions)
	creds := git.Credentials{
		Username:       os.Getenv("CRNOW_GIT_USERNAME"),
		Token:          os.Getenv("CRNOW_GIT_TOKEN"),
		SSHKeyPassword: os.Getenv("CRNOW_GIT_SSH_KEY_PASSWORD"),
	}

	client, err := git.New(logger, AppConfig, rulesCfg, creds)
	if err != nil {
		return crnowerrors.NewCommandError(err, 2)
	}

	folder, err := client.SyncRules(context.Background(), config.GetRulesHome(AppConfig))
	if err != nil {
		logger.Error("rules sync failed", "error", err)
		return crnowerrors.NewCommandError(err, 1)
	}

	logger.Info("rules folder is up to date", "folder", folder)
	return nil
}

// mergeRulesConfig overrides the configured rules repository with the flags that were set.
func mergeRulesConfig(cfg config.Rules, options RunOptionsSync) config.Rules {
	return config.Rules{
		Repository: config.SetThen(options.Repository, cfg.Repository),
		Branch:     config.SetThen(options.Branch, cfg.Branch),
		AuthType:   config.SetThen(options.AuthType, cfg.AuthType),
		SSHKey:     config.SetThen(options.SSHKey, cfg.SSHKey),
	}
}

func init() {
	syncCmd.Flags().StringVar(&syncOptions.Repository, "repository", "", "Rules repository URL (default from config)")
	syncCmd.Flags().StringVarP(&syncOptions.Branch, "branch", "b", "", "Branch to check out (default is the remote HEAD)")
	syncCmd.Flags().StringVar(&syncOptions.AuthType, "auth-type", "", "Authentication type: none, http, ssh-key or ssh-agent")
	syncCmd.Flags().StringVar(&syncOptions.SSHKey, "ssh-key", "", "Path to the SSH key for ssh-key authentication")
	syncCmd.Flags().BoolP("help", "h", false, "Show help for rules sync command.")
}

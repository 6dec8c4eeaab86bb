package rules

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/crnow/internal/git"
	internalrules "github.com/scan-io-git/crnow/internal/rules"
	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
	"github.com/scan-io-git/crnow/pkg/shared/logger"
)

var listCmd = &cobra.Command{
	Use:                   "list",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "List the rules in the rules folder and whether they load",
	RunE:                  runListCommand,
}

func runListCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-rules-list")
	folder := config.GetRulesHome(AppConfig)

	registry := internalrules.NewRegistry(logger.Named("rules"))
	if err := registry.LoadRules(folder); err != nil {
		logger.Error("failed to load rules", "folder", folder, "error", err)
		return crnowerrors.NewCommandError(err, 1)
	}

	if md, err := git.CollectRepositoryMetadata(folder); err == nil && md.CommitHash != nil {
		branch := "detached"
		if md.BranchName != nil {
			branch = *md.BranchName
		}
		logger.Info("rules folder revision", "branch", branch, "commit", *md.CommitHash)
	} else if err != nil {
		logger.Debug("rules folder is not a git checkout", "folder", folder, "error", err)
	}

	described, diagnostics := registry.Describe()
	return printRules(os.Stdout, described, diagnostics)
}

// printRules writes a table of loaded rules followed by the ones that failed to load.
func printRules(out io.Writer, described []*internalrules.Rule, diagnostics []internalrules.Diagnostic) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tDESCRIPTION")
	for _, r := range described {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Kind, r.Description)
	}
	for _, d := range diagnostics {
		fmt.Fprintf(w, "%s\t%s\t%v\n", d.RuleID, "broken", d.Err)
	}
	return w.Flush()
}

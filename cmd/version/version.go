package version

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/crnow/internal/git"
	"github.com/scan-io-git/crnow/pkg/shared/config"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"

	jsonOutput bool
)

// Versions holds build information of the binary.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// CoreVersions holds version information for the binary and the rules folder.
type CoreVersions struct {
	Versions Versions  `json:"versions"`
	Rules    RulesMeta `json:"rules"`
}

// RulesMeta describes the revision the rules folder is checked out at.
type RulesMeta struct {
	Folder     string `json:"folder"`
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	Commit     string `json:"commit"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and the rules folder revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := CoreVersions{
				Versions: Versions{
					Version:       CoreVersion,
					GolangVersion: GolangVersion,
					BuildTime:     BuildTime,
				},
				Rules: getRulesMeta(config.GetRulesHome(AppConfig)),
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(version)
			}
			printVersionInfo(os.Stdout, &version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print version information as JSON")
	return cmd
}

// getRulesMeta reads the git revision of the rules folder.
func getRulesMeta(rulesFolder string) RulesMeta {
	meta := RulesMeta{Folder: rulesFolder, Repository: "unknown", Branch: "unknown", Commit: "unknown"}
	md, err := git.CollectRepositoryMetadata(rulesFolder)
	if err != nil {
		return meta
	}
	if md.RepositoryFullName != nil {
		meta.Repository = *md.RepositoryFullName
	}
	if md.BranchName != nil {
		meta.Branch = *md.BranchName
	}
	if md.CommitHash != nil {
		meta.Commit = *md.CommitHash
	}
	return meta
}

// printVersionInfo prints the version information for the binary and the rules folder.
func printVersionInfo(out io.Writer, versions *CoreVersions) {
	fmt.Fprintf(out, "Core Version: v%s\n", versions.Versions.Version)
	fmt.Fprintln(out, "Rules:")
	fmt.Fprintf(out, "  Folder: %s\n", versions.Rules.Folder)
	fmt.Fprintf(out, "  Repository: %s\n", versions.Rules.Repository)
	fmt.Fprintf(out, "  Revision: %s (%s)\n", versions.Rules.Commit, versions.Rules.Branch)
	fmt.Fprintf(out, "Go Version: %s\n", versions.Versions.GolangVersion)
	fmt.Fprintf(out, "Build Time: %s\n", versions.Versions.BuildTime)
}

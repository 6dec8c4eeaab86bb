package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/crnow/internal/batch"
	"github.com/scan-io-git/crnow/internal/report"
	crnowreview "github.com/scan-io-git/crnow/internal/review"
	"github.com/scan-io-git/crnow/internal/rules"
	"github.com/scan-io-git/crnow/internal/servicenow"
	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
	"github.com/scan-io-git/crnow/pkg/shared/logger"
)

// RunOptionsReview holds the arguments for the review command.
type RunOptionsReview struct {
	Instance     string
	UpdateSet    string
	ScopedApp    string
	Duration     int
	Files        string
	Format       string
	OutputPath   string
	TemplatePath string
	ShowAll      bool
	Threads      int
	S3Bucket     string
	S3Prefix     string
}

// Global variables for configuration and command arguments
var (
	AppConfig          *config.Config
	reviewOptions      RunOptionsReview
	exampleReviewUsage = `  # Review every script of an update set on the default instance
  crnow review --updateset 3f1c0b4adb2e1010a1b2c3d4e5f60718

  # Review a scoped application and keep findings on lines nobody owns
  crnow review --instance dev12345 --scopedapp 8c1a0e5cdb6e1010a1b2c3d4e5f60718 --all

  # Review scripts changed in the last 7 days and write an HTML report to the results folder
  crnow review --duration 7 --format html

  # Review an explicit list of files and write SARIF to a file
  crnow review --files '[{"sys_id":"abc","type":"sys_script_include"}]' --format sarif --output review.sarif

  # Publish the written report to S3
  crnow review --updateset 3f1c0b4a --format html --s3-bucket team-reports --s3-prefix crnow`
)

// ReviewCmd represents the review command.
var ReviewCmd = &cobra.Command{
	Use:                   "review [--instance NAME] {--updateset ID | --scopedapp ID | --duration DAYS | --files JSON} [--format/-f FORMAT] [--output/-o PATH] [--all] [-j THREADS_NUMBER] [--s3-bucket BUCKET] [--s3-prefix PREFIX]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleReviewUsage,
	Short:                 "Review ServiceNow scripts against the rules folder",
	RunE:                  runReviewCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
	ReviewCmd.Long = generateLongDescription(AppConfig)
}

// runReviewCommand executes the review command.
func runReviewCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !hasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-review")

	if err := validateReviewArgs(&reviewOptions, args); err != nil {
		logger.Error("invalid review arguments", "error", err)
		return crnowerrors.NewCommandError(err, 2)
	}

	req, err := prepareReviewRequest(&reviewOptions)
	if err != nil {
		logger.Error("failed to prepare review request", "error", err)
		return crnowerrors.NewCommandError(err, 2)
	}
	format, _ := report.ParseFormat(reviewOptions.Format)

	instance, err := config.GetInstance(AppConfig, reviewOptions.Instance)
	if err != nil {
		logger.Error("failed to resolve instance", "error", err)
		return crnowerrors.NewCommandError(err, 2)
	}

	registry := rules.NewRegistry(logger.Named("rules"))
	if err := registry.LoadRules(config.GetRulesHome(AppConfig)); err != nil {
		logger.Error("failed to load rules", "folder", config.GetRulesHome(AppConfig), "error", err)
		return crnowerrors.NewCommandError(fmt.Errorf("failed to load rules: %w", err), 1)
	}
	if len(registry.IDs()) == 0 {
		logger.Warn("rules folder is empty, run 'crnow rules sync' first", "folder", config.GetRulesHome(AppConfig))
	}

	client, err := servicenow.New(AppConfig, logger.Named("servicenow"), instance)
	if err != nil {
		logger.Error("failed to create ServiceNow client", "error", err)
		return crnowerrors.NewCommandError(err, 1)
	}

	o := batch.New(
		registry,
		crnowreview.NewEngine(registry, logger.Named("engine")),
		client,
		client,
		batch.Options{
			InstanceLabel:   instance.Name,
			InstanceURL:     config.InstanceURL(instance),
			UserName:        instance.Username,
			ShowAllFindings: reviewOptions.ShowAll,
			Concurrency:     config.SetThen(reviewOptions.Threads, AppConfig.Review.Concurrency),
			MaxDeltaDays:    AppConfig.Review.MaxDeltaDays,
		},
		logger.Named("batch"),
	)

	ctx, stop := signalContext(context.Background())
	defer stop()

	b, err := o.Run(ctx, req)
	if err != nil {
		logger.Error("review failed", "error", err)
		return crnowerrors.NewCommandError(err, exitCode(err))
	}
	if b.Outcome == batch.OutcomeNoFiles {
		logger.Info("no files found to review", "mode", b.Mode)
		return nil
	}

	reportPath, err := writeReport(b, format, &reviewOptions)
	if err != nil {
		logger.Error("failed to write report", "error", err)
		return crnowerrors.NewCommandError(err, 1)
	}
	if reportPath != "" {
		logger.Info("report written", "path", reportPath)
	}

	if reviewOptions.S3Bucket != "" || AppConfig.Publish.S3.Bucket != "" {
		if reportPath == "" {
			err := fmt.Errorf("publishing requires the report to be written to a file, use --output")
			logger.Error("failed to publish report", "error", err)
			return crnowerrors.NewCommandError(err, 2)
		}
		publisher, err := report.NewS3Publisher(AppConfig.Publish.S3, reviewOptions.S3Bucket, reviewOptions.S3Prefix, logger.Named("publish"))
		if err != nil {
			logger.Error("failed to create S3 publisher", "error", err)
			return crnowerrors.NewCommandError(err, 1)
		}
		if _, err := publisher.Publish(ctx, instance.Name, reportPath); err != nil {
			logger.Error("failed to publish report", "error", err)
			return crnowerrors.NewCommandError(err, 1)
		}
	}

	logger.Info("review command completed successfully", "files", len(b.Results), "findings", b.FindingsCount())
	return nil
}

// exitCode maps a failed run to the process exit code: 2 for bad input, 1 otherwise.
func exitCode(err error) int {
	var validation *crnowerrors.ValidationError
	if errors.As(err, &validation) {
		return 2
	}
	return 1
}

// generateLongDescription lists the rules currently present in the rules folder.
func generateLongDescription(cfg *config.Config) string {
	ids := listRuleFiles(config.GetRulesHome(cfg))
	if len(ids) == 0 {
		ids = []string{"none, run 'crnow rules sync'"}
	}
	return fmt.Sprintf(`Review ServiceNow scripts against the rules folder and attribute findings to developers.

Report formats: %s

Rules available in %s:
  %s`, strings.Join(formatNames(), ", "), config.GetRulesHome(cfg), strings.Join(ids, "\n  "))
}

func init() {
	ReviewCmd.Flags().StringVar(&reviewOptions.Instance, "instance", "", "Name of the configured instance to review (default instance when empty)")
	ReviewCmd.Flags().StringVar(&reviewOptions.UpdateSet, "updateset", "", "sys_id of the update set to review")
	ReviewCmd.Flags().StringVar(&reviewOptions.ScopedApp, "scopedapp", "", "sys_id of the scoped application to review")
	ReviewCmd.Flags().IntVar(&reviewOptions.Duration, "duration", 0, "Review scripts changed in the last N days")
	ReviewCmd.Flags().StringVar(&reviewOptions.Files, "files", "", `JSON array of files to review, e.g. '[{"sys_id":"abc","type":"sys_script_include"}]'`)
	ReviewCmd.Flags().StringVarP(&reviewOptions.Format, "format", "f", string(report.FormatJSON), "Report format: json, html or sarif")
	ReviewCmd.Flags().StringVarP(&reviewOptions.OutputPath, "output", "o", "", "Report file or folder. JSON and SARIF go to stdout when empty, HTML to the results folder")
	ReviewCmd.Flags().StringVar(&reviewOptions.TemplatePath, "template", "", "HTML report template (default is report.html in the templates folder)")
	ReviewCmd.Flags().BoolVar(&reviewOptions.ShowAll, "all", false, "Keep findings on lines no developer owns")
	ReviewCmd.Flags().IntVarP(&reviewOptions.Threads, "threads", "j", 0, "Number of files reviewed concurrently")
	ReviewCmd.Flags().StringVar(&reviewOptions.S3Bucket, "s3-bucket", "", "Upload the written report to this S3 bucket")
	ReviewCmd.Flags().StringVar(&reviewOptions.S3Prefix, "s3-prefix", "", "Key prefix of uploaded reports")
	ReviewCmd.Flags().BoolP("help", "h", false, "Show help for review command.")
}

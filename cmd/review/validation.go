package review

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/crnow/internal/report"
)

// validateReviewArgs validates the review command options.
func validateReviewArgs(options *RunOptionsReview, args []string) error {
	var issues []string

	if len(args) > 0 {
		issues = append(issues, fmt.Sprintf("unexpected positional arguments: %s", strings.Join(args, ", ")))
	}

	var sources []string
	if strings.TrimSpace(options.UpdateSet) != "" {
		sources = append(sources, "updateset")
	}
	if strings.TrimSpace(options.ScopedApp) != "" {
		sources = append(sources, "scopedapp")
	}
	if options.Duration != 0 {
		sources = append(sources, "duration")
	}
	if strings.TrimSpace(options.Files) != "" {
		sources = append(sources, "files")
	}
	switch len(sources) {
	case 0:
		issues = append(issues, "one of --updateset, --scopedapp, --duration or --files is required")
	case 1:
	default:
		issues = append(issues, fmt.Sprintf("only one source can be used at a time, got: %s", strings.Join(sources, ", ")))
	}

	if _, err := report.ParseFormat(options.Format); err != nil {
		issues = append(issues, err.Error())
	}
	if options.Threads < 0 {
		issues = append(issues, "'threads' cannot be negative")
	}
	if options.S3Prefix != "" && options.S3Bucket == "" && (AppConfig == nil || AppConfig.Publish.S3.Bucket == "") {
		issues = append(issues, "'s3-prefix' requires 's3-bucket'")
	}

	if len(issues) > 0 {
		return fmt.Errorf("%s", strings.Join(issues, "; "))
	}

	return nil
}

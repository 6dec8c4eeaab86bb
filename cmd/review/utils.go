package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/crnow/internal/batch"
	"github.com/scan-io-git/crnow/internal/record"
	"github.com/scan-io-git/crnow/internal/report"
	"github.com/scan-io-git/crnow/internal/rules"
	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
	"github.com/scan-io-git/crnow/pkg/shared/files"
)

// hasFlags reports whether any flag was set on the command line.
func hasFlags(flags *pflag.FlagSet) bool {
	set := false
	flags.Visit(func(*pflag.Flag) {
		set = true
	})
	return set
}

// prepareReviewRequest turns validated options into a batch request.
func prepareReviewRequest(options *RunOptionsReview) (batch.Request, error) {
	switch {
	case options.UpdateSet != "":
		return batch.Request{Mode: batch.ModeUpdateSet, UpdateSetID: options.UpdateSet}, nil
	case options.ScopedApp != "":
		return batch.Request{Mode: batch.ModeScopedApp, ScopedAppID: options.ScopedApp}, nil
	case options.Duration != 0:
		return batch.Request{Mode: batch.ModeDuration, DeltaDays: options.Duration}, nil
	case options.Files != "":
		refs, err := parseFileRefs(options.Files)
		if err != nil {
			return batch.Request{}, err
		}
		return batch.Request{Mode: batch.ModeFiles, Files: refs}, nil
	default:
		return batch.Request{}, crnowerrors.NewValidationError("source", "one of --updateset, --scopedapp, --duration or --files is required")
	}
}

// parseFileRefs decodes the --files JSON array.
func parseFileRefs(raw string) ([]record.FileRef, error) {
	var refs []record.FileRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, crnowerrors.NewValidationError("files", "expected a JSON array of {\"sys_id\",\"type\"} objects: %v", err)
	}
	return refs, nil
}

// writeReport renders b and returns the written file path, or an empty path when the report went to stdout.
func writeReport(b *batch.ReviewBatch, format report.Format, options *RunOptionsReview) (string, error) {
	opts := report.Options{
		ShowAllFindings: options.ShowAll,
		TemplatePath:    config.SetThen(options.TemplatePath, filepath.Join(config.GetTemplatesHome(AppConfig), report.DefaultTemplateName)),
	}

	output := options.OutputPath
	if output == "" && format == report.FormatHTML {
		output = config.GetResultsHome(AppConfig)
	}
	if output == "" {
		return "", report.Write(os.Stdout, format, b, opts)
	}

	fullPath, folder, err := files.DetermineFileFullPath(output, report.FileName(b, format))
	if err != nil {
		return "", err
	}
	if err := files.CreateFolderIfNotExists(folder); err != nil {
		return "", err
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file %q: %w", fullPath, err)
	}
	if err := writeAndClose(f, format, b, opts); err != nil {
		return "", err
	}
	return fullPath, nil
}

func writeAndClose(f io.WriteCloser, format report.Format, b *batch.ReviewBatch, opts report.Options) error {
	if err := report.Write(f, format, b, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// signalContext cancels the returned context on interrupt so in-flight requests stop.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// listRuleFiles returns the rule ids found in folder.
func listRuleFiles(folder string) []string {
	registry := rules.NewRegistry(hclog.NewNullLogger())
	if err := registry.LoadRules(folder); err != nil {
		return nil
	}
	return registry.IDs()
}

func formatNames() []string {
	names := make([]string, 0, len(report.Formats))
	for _, f := range report.Formats {
		names = append(names, string(f))
	}
	return names
}

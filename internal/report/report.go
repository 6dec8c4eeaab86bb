package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/scan-io-git/crnow/internal/batch"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

// Format is an output format of a review batch.
type Format string

const (
	FormatJSON  Format = "json"
	FormatHTML  Format = "html"
	FormatSARIF Format = "sarif"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatJSON, FormatHTML, FormatSARIF}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", crnowerrors.NewValidationError("format", "unsupported output format %q, expected one of %v", s, Formats)
}

// Extension returns the file extension reports of the format are written with.
func (f Format) Extension() string {
	return "." + string(f)
}

// Options controls how a batch is rendered.
type Options struct {
	ShowAllFindings bool
	TemplatePath    string
}

// Write renders b to w in the given format.
func Write(w io.Writer, format Format, b *batch.ReviewBatch, opts Options) error {
	if b == nil {
		return fmt.Errorf("review batch is nil")
	}
	switch format {
	case FormatJSON:
		return JSON(w, b, opts.ShowAllFindings)
	case FormatHTML:
		return HTML(w, b, opts.TemplatePath)
	case FormatSARIF:
		return SARIF(w, b)
	default:
		return crnowerrors.NewValidationError("format", "unsupported output format %q", format)
	}
}

// FileName returns the default report file name of b.
func FileName(b *batch.ReviewBatch, format Format) string {
	return fmt.Sprintf("crnow-%s-%s%s", b.Mode, b.RanAt.Format("20060102-150405"), format.Extension())
}

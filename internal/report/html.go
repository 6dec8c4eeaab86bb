package report

import (
	_ "embed"
	"errors"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"os"

	"github.com/scan-io-git/crnow/internal/batch"
	"github.com/scan-io-git/crnow/internal/template"
)

// DefaultTemplateName is the file looked up in the templates folder.
const DefaultTemplateName = "report.html"

//go:embed templates/report.html
var defaultTemplate string

// DefaultTemplate returns the built-in HTML report template.
func DefaultTemplate() string {
	return defaultTemplate
}

// HTML renders b with the template at templatePath, falling back to the built-in template
// when templatePath is empty or does not exist. Files without findings are omitted.
func HTML(w io.Writer, b *batch.ReviewBatch, templatePath string) error {
	tmpl, err := loadTemplate(templatePath)
	if err != nil {
		return err
	}

	files := make([]batch.FileReviewResult, 0, len(b.Results))
	for _, r := range b.Results {
		if len(r.Findings) > 0 {
			files = append(files, r)
		}
	}

	data := struct {
		Batch *batch.ReviewBatch
		Files []batch.FileReviewResult
	}{
		Batch: b,
		Files: files,
	}
	return tmpl.Execute(w, data)
}

func loadTemplate(templatePath string) (*htmltemplate.Template, error) {
	if templatePath != "" {
		_, err := os.Stat(templatePath)
		switch {
		case err == nil:
			return template.NewTemplate(templatePath)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	return template.Parse(DefaultTemplateName, defaultTemplate)
}

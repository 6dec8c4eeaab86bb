package report

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/crnow/internal/batch"
	"github.com/scan-io-git/crnow/internal/findings"
)

const (
	toolName           = "crnow"
	toolInformationURI = "https://github.com/scan-io-git/crnow"
	parsingErrorRuleID = "parsing-error"
)

// SARIF writes b as a SARIF 2.1.0 log with one result per finding.
func SARIF(w io.Writer, b *batch.ReviewBatch) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolInformationURI)
	for _, r := range b.Results {
		uri := fmt.Sprintf("%s/%s", r.ClassName, r.FileSysID)
		for _, f := range r.Findings {
			ruleID := f.RuleID
			if ruleID == "" {
				ruleID = parsingErrorRuleID
			}
			rule := run.AddRule(ruleID).
				WithDescription(f.Message).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: toSarifLevel(f.Severity),
				})

			region := sarif.NewRegion().WithStartLine(f.Line)
			if f.Column > 0 {
				region = region.WithStartColumn(f.Column)
			}
			location := sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
					WithRegion(region),
			)

			result := sarif.NewRuleResult(rule.ID).
				WithMessage(sarif.NewTextMessage(f.Message)).
				WithLevel(toSarifLevel(f.Severity)).
				WithLocations([]*sarif.Location{location})
			result.Properties = map[string]interface{}{
				"developer":    f.Developer,
				"fileName":     r.FileName,
				"versionSysId": r.VersionSysID,
			}
			run.AddResult(result)
		}
	}
	report.AddRun(run)

	return report.PrettyWrite(w)
}

func toSarifLevel(level findings.SeverityLevel) string {
	switch level {
	case findings.SeverityError:
		return "error"
	case findings.SeverityWarning:
		return "warning"
	default:
		return "none"
	}
}

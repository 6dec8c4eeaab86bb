package report

import (
	"encoding/json"
	"io"

	"github.com/scan-io-git/crnow/internal/batch"
	"github.com/scan-io-git/crnow/internal/blame"
)

type jsonFile struct {
	SysID     string `json:"sysid"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	VersionID string `json:"versionId"`
}

type jsonReview struct {
	Line       int    `json:"line"`
	RuleID     string `json:"ruleid"`
	Message    string `json:"message"`
	Developer  string `json:"developer"`
	ErrorLevel string `json:"error_level"`
}

type jsonResult struct {
	Instance string       `json:"instance"`
	File     jsonFile     `json:"file"`
	Reviews  []jsonReview `json:"reviews"`
}

// JSON writes b as a single line JSON array. Files without findings are omitted.
func JSON(w io.Writer, b *batch.ReviewBatch, showAll bool) error {
	results := make([]jsonResult, 0, len(b.Results))
	for _, r := range b.Results {
		fs := blame.FilterByOwnership(r.Findings, showAll)
		if len(fs) == 0 {
			continue
		}

		reviews := make([]jsonReview, 0, len(fs))
		for _, f := range fs {
			reviews = append(reviews, jsonReview{
				Line:       f.Line,
				RuleID:     f.RuleID,
				Message:    f.Message,
				Developer:  f.Developer,
				ErrorLevel: string(f.Severity),
			})
		}
		results = append(results, jsonResult{
			Instance: b.InstanceLabel,
			File: jsonFile{
				SysID:     r.FileSysID,
				Type:      r.ClassName,
				Name:      r.FileName,
				VersionID: r.VersionSysID,
			},
			Reviews: reviews,
		})
	}

	return json.NewEncoder(w).Encode(results)
}

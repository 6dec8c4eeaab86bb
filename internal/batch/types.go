package batch

import (
	"context"
	"time"

	"github.com/scan-io-git/crnow/internal/blame"
	"github.com/scan-io-git/crnow/internal/findings"
	"github.com/scan-io-git/crnow/internal/record"
	"github.com/scan-io-git/crnow/internal/rules"
)

// Mode selects where the files of a batch come from.
type Mode string

const (
	ModeFiles     Mode = "files"
	ModeUpdateSet Mode = "updateset"
	ModeScopedApp Mode = "scopedapp"
	ModeDuration  Mode = "duration"
)

// Request describes one review run. Only the field matching Mode is used.
type Request struct {
	Mode        Mode
	UpdateSetID string
	ScopedAppID string
	DeltaDays   int
	Files       []record.FileRef
}

// Options configures an Orchestrator.
type Options struct {
	InstanceLabel   string
	InstanceURL     string
	UserName        string
	ShowAllFindings bool
	Concurrency     int
	MaxDeltaDays    int
}

// RecordSource fetches raw script records from an instance.
type RecordSource interface {
	FetchByUpdateSet(ctx context.Context, updateSetID string) ([]record.UpdateSetPayload, error)
	FetchByScopedApp(ctx context.Context, scopedAppID string) ([]record.FlatPayload, error)
	FetchByDeltaWindow(ctx context.Context, days, maxDays int) ([]record.FlatPayload, error)
	FetchByExplicitList(ctx context.Context, refs []record.FileRef) ([]record.FlatPayload, error)
}

// TagSource fetches line ownership for a set of files in one call.
type TagSource interface {
	FetchTagMaps(ctx context.Context, keys []blame.FileKey) (map[string]blame.FileTags, error)
}

// RuleSelector picks the rules applicable to a record.
type RuleSelector interface {
	IDs() []string
	SelectApplicable(candidates []string, rec *record.ScriptRecord) (rules.Selection, []rules.Diagnostic)
}

// Reviewer runs a rule selection against a script.
type Reviewer interface {
	Review(ctx context.Context, body string, selection rules.Selection, fileLabel string) ([]findings.Finding, error)
}

// State is a stage of a batch run.
type State string

const (
	StateIdle           State = "idle"
	StateRecordsFetched State = "records-fetched"
	StatePerFileReview  State = "per-file-review"
	StateAttributed     State = "attributed"
	StateAssembled      State = "assembled"
	StateDone           State = "done"
	StateError          State = "error"
)

// Outcome tells whether a batch reviewed anything.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoFiles   Outcome = "no-files"
)

// FileReviewResult holds the attributed findings of one file.
type FileReviewResult struct {
	FileSysID    string
	VersionSysID string
	FileName     string
	ClassName    string
	DisplayType  string
	UpdatedBy    string
	Findings     []findings.Finding
}

// ReviewBatch is the result of one run.
type ReviewBatch struct {
	ID            string
	RanAt         time.Time
	InstanceLabel string
	InstanceURL   string
	UserName      string
	Mode          Mode
	State         State
	Outcome       Outcome
	Results       []FileReviewResult
}

// FindingsCount returns the number of findings across all files.
func (b *ReviewBatch) FindingsCount() int {
	count := 0
	for _, r := range b.Results {
		count += len(r.Findings)
	}
	return count
}

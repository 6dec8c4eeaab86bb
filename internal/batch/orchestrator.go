package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/scan-io-git/crnow/internal/blame"
	"github.com/scan-io-git/crnow/internal/record"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

const defaultConcurrency = 4

// Orchestrator drives a batch from fetching records to attributed results.
type Orchestrator struct {
	registry RuleSelector
	engine   Reviewer
	records  RecordSource
	tags     TagSource
	opts     Options
	logger   hclog.Logger
	validate *validator.Validate
}

// New creates an orchestrator.
func New(registry RuleSelector, engine Reviewer, records RecordSource, tags TagSource, opts Options, logger hclog.Logger) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Orchestrator{
		registry: registry,
		engine:   engine,
		records:  records,
		tags:     tags,
		opts:     opts,
		logger:   logger,
		validate: validator.New(),
	}
}

// Run executes req. A batch that finds no files completes with OutcomeNoFiles and a nil error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*ReviewBatch, error) {
	b := &ReviewBatch{
		ID:            uuid.New().String(),
		RanAt:         time.Now(),
		InstanceLabel: o.opts.InstanceLabel,
		InstanceURL:   o.opts.InstanceURL,
		UserName:      o.opts.UserName,
		Mode:          req.Mode,
		State:         StateIdle,
	}
	o.logger.Debug("batch created", "id", b.ID, "mode", req.Mode)

	req, err := o.validateRequest(req)
	if err != nil {
		o.transition(b, StateError)
		return nil, err
	}

	var recs []*record.ScriptRecord
	if req.Mode != ModeFiles || len(req.Files) > 0 {
		recs, err = o.fetch(ctx, req)
		if err != nil {
			o.transition(b, StateError)
			return nil, err
		}
	}
	o.transition(b, StateRecordsFetched)

	if len(recs) == 0 {
		o.logger.Info("no files found to review", "mode", req.Mode)
		b.Outcome = OutcomeNoFiles
		o.transition(b, StateDone)
		return b, nil
	}

	o.transition(b, StatePerFileReview)
	results, err := o.reviewAll(ctx, recs)
	if err != nil {
		o.transition(b, StateError)
		return nil, err
	}

	if err := o.attribute(ctx, results); err != nil {
		o.transition(b, StateError)
		return nil, err
	}
	o.transition(b, StateAttributed)

	for i := range results {
		results[i].Findings = blame.FilterByOwnership(results[i].Findings, o.opts.ShowAllFindings)
	}
	b.Results = results
	b.Outcome = OutcomeCompleted
	o.transition(b, StateAssembled)

	o.logger.Info("review completed", "id", b.ID, "files", len(b.Results), "findings", b.FindingsCount())
	o.transition(b, StateDone)
	return b, nil
}

func (o *Orchestrator) transition(b *ReviewBatch, state State) {
	o.logger.Debug("batch state changed", "id", b.ID, "from", b.State, "to", state)
	b.State = state
}

// validateRequest rejects bad requests before anything is fetched.
// Explicit list entries missing a field are dropped.
func (o *Orchestrator) validateRequest(req Request) (Request, error) {
	switch req.Mode {
	case ModeUpdateSet:
		if req.UpdateSetID == "" {
			return req, crnowerrors.NewValidationError("updateset", "update set id is required")
		}
	case ModeScopedApp:
		if req.ScopedAppID == "" {
			return req, crnowerrors.NewValidationError("scopedapp", "scoped app id is required")
		}
	case ModeDuration:
		if req.DeltaDays <= 0 || (o.opts.MaxDeltaDays > 0 && req.DeltaDays > o.opts.MaxDeltaDays) {
			return req, crnowerrors.NewValidationError("duration", "delta days must be between 1 and %d, got %d", o.opts.MaxDeltaDays, req.DeltaDays)
		}
	case ModeFiles:
		valid := make([]record.FileRef, 0, len(req.Files))
		for _, ref := range req.Files {
			if err := o.validate.Struct(ref); err != nil {
				o.logger.Warn("skipping file entry", "sys_id", ref.SysID, "type", ref.ClassName, "error", err)
				continue
			}
			valid = append(valid, ref)
		}
		req.Files = valid
	default:
		return req, crnowerrors.NewValidationError("mode", "unsupported review mode %q", req.Mode)
	}
	return req, nil
}

// fetch loads and normalizes the records of req, dropping the ones that cannot be reviewed.
func (o *Orchestrator) fetch(ctx context.Context, req Request) ([]*record.ScriptRecord, error) {
	var (
		recs []*record.ScriptRecord
		flat []record.FlatPayload
		err  error
	)

	switch req.Mode {
	case ModeUpdateSet:
		rows, fetchErr := o.records.FetchByUpdateSet(ctx, req.UpdateSetID)
		if fetchErr != nil {
			return nil, fmt.Errorf("failed to fetch update set %q: %w", req.UpdateSetID, fetchErr)
		}
		for _, row := range rows {
			rec, err := record.FromUpdateSetRow(row)
			if err != nil {
				o.logger.Warn("skipping update set file", "file", row.TargetName, "error", err)
				continue
			}
			recs = append(recs, rec)
		}
	case ModeScopedApp:
		flat, err = o.records.FetchByScopedApp(ctx, req.ScopedAppID)
	case ModeDuration:
		flat, err = o.records.FetchByDeltaWindow(ctx, req.DeltaDays, o.opts.MaxDeltaDays)
	case ModeFiles:
		flat, err = o.records.FetchByExplicitList(ctx, req.Files)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s files: %w", req.Mode, err)
	}
	for _, payload := range flat {
		recs = append(recs, record.FromFlatPayload(payload))
	}

	seen := make(map[string]struct{}, len(recs))
	valid := make([]*record.ScriptRecord, 0, len(recs))
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			o.logger.Warn("skipping file", "file", rec.Label(), "error", err)
			continue
		}
		if _, ok := seen[rec.SysID]; ok {
			o.logger.Debug("skipping duplicate file", "file", rec.Label(), "sys_id", rec.SysID)
			continue
		}
		seen[rec.SysID] = struct{}{}
		valid = append(valid, rec)
	}
	return valid, nil
}

// reviewAll reviews recs in parallel and returns the results in input order.
// Files whose review fails are dropped.
func (o *Orchestrator) reviewAll(ctx context.Context, recs []*record.ScriptRecord) ([]FileReviewResult, error) {
	candidates := o.registry.IDs()
	reviewed := make([]*FileReviewResult, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			selection, diagnostics := o.registry.SelectApplicable(candidates, rec)
			for _, d := range diagnostics {
				o.logger.Warn("rule excluded", "rule", d.RuleID, "file", rec.Label(), "error", d.Err)
			}

			fs, err := o.engine.Review(gctx, rec.ScriptBody, selection, rec.FileName)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.Error("failed to review file", "file", rec.Label(), "error", err)
				return nil
			}
			o.logger.Debug("code smells found", "file", rec.Label(), "rules", len(selection), "count", len(fs))

			reviewed[i] = &FileReviewResult{
				FileSysID:   rec.SysID,
				FileName:    rec.FileName,
				ClassName:   rec.ClassName,
				DisplayType: record.DisplayType(rec.ClassName),
				UpdatedBy:   rec.UpdatedBy,
				Findings:    fs,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]FileReviewResult, 0, len(reviewed))
	for _, r := range reviewed {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, nil
}

// attribute fetches the tag maps of all results in one call and assigns developers.
func (o *Orchestrator) attribute(ctx context.Context, results []FileReviewResult) error {
	if len(results) == 0 {
		return nil
	}

	keys := make([]blame.FileKey, 0, len(results))
	for _, r := range results {
		keys = append(keys, blame.FileKey{FileClassName: r.ClassName, FileSysID: r.FileSysID})
	}

	tagMaps, err := o.tags.FetchTagMaps(ctx, keys)
	if err != nil {
		var upstream *crnowerrors.UpstreamError
		if errors.As(err, &upstream) {
			return err
		}
		return crnowerrors.NewUpstreamError("fetch tag maps", 0, err)
	}

	for i := range results {
		fileTags, ok := tagMaps[results[i].FileSysID]
		if ok {
			results[i].VersionSysID = fileTags.VersionSysID
		}
		results[i].Findings = blame.Attribute(results[i].Findings, fileTags.Tags)
	}
	return nil
}

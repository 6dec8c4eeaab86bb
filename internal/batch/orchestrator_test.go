package batch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/crnow/internal/blame"
	"github.com/scan-io-git/crnow/internal/findings"
	"github.com/scan-io-git/crnow/internal/record"
	"github.com/scan-io-git/crnow/internal/review"
	"github.com/scan-io-git/crnow/internal/rules"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

const updateSetPayload = `<record_update table="sys_script_include">
  <sys_script_include action="INSERT_OR_UPDATE">
    <name>Util</name>
    <script>var x=1</script>
    <sys_id>abc123</sys_id>
    <sys_updated_by>alice</sys_updated_by>
  </sys_script_include>
</record_update>`

type fakeRecords struct {
	mu        sync.Mutex
	calls     int
	updateSet []record.UpdateSetPayload
	flat      []record.FlatPayload
	refs      []record.FileRef
	err       error
}

func (f *fakeRecords) hit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeRecords) FetchByUpdateSet(_ context.Context, _ string) ([]record.UpdateSetPayload, error) {
	f.hit()
	return f.updateSet, f.err
}

func (f *fakeRecords) FetchByScopedApp(_ context.Context, _ string) ([]record.FlatPayload, error) {
	f.hit()
	return f.flat, f.err
}

func (f *fakeRecords) FetchByDeltaWindow(_ context.Context, _, _ int) ([]record.FlatPayload, error) {
	f.hit()
	return f.flat, f.err
}

func (f *fakeRecords) FetchByExplicitList(_ context.Context, refs []record.FileRef) ([]record.FlatPayload, error) {
	f.hit()
	f.refs = refs
	return f.flat, f.err
}

type fakeTags struct {
	calls int
	keys  []blame.FileKey
	tags  map[string]blame.FileTags
	err   error
}

func (f *fakeTags) FetchTagMaps(_ context.Context, keys []blame.FileKey) (map[string]blame.FileTags, error) {
	f.calls++
	f.keys = keys
	return f.tags, f.err
}

func newTestOrchestrator(t *testing.T, records RecordSource, tags TagSource, showAll bool) *Orchestrator {
	t.Helper()
	logger := hclog.NewNullLogger()

	registry := rules.NewRegistry(logger)
	check := rules.Check{Pattern: `\S`, NotPattern: `;\s*$`, Message: "Missing semicolon."}
	require.NoError(t, check.Compile())
	registry.Define("semi", &rules.Rule{ID: "semi", Kind: rules.KindObject, Meta: &rules.Meta{}, Check: check})

	opts := Options{InstanceLabel: "dev1", ShowAllFindings: showAll, Concurrency: 2, MaxDeltaDays: 30}
	return New(registry, review.NewEngine(registry, logger), records, tags, opts, logger)
}

func TestRunUpdateSet(t *testing.T) {
	records := &fakeRecords{updateSet: []record.UpdateSetPayload{{
		Type:       "Script Include",
		Name:       "sys_script_include_abc123",
		TargetName: "Util",
		Payload:    updateSetPayload,
	}}}
	tags := &fakeTags{tags: map[string]blame.FileTags{
		"abc123": {FileSysID: "abc123", VersionSysID: "v1", Tags: blame.TagMap{{Developer: "alice", Lines: []int{1}}}},
	}}

	b, err := newTestOrchestrator(t, records, tags, false).Run(context.Background(), Request{Mode: ModeUpdateSet, UpdateSetID: "us1"})
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, OutcomeCompleted, b.Outcome)
	assert.Equal(t, StateDone, b.State)
	assert.Equal(t, "dev1", b.InstanceLabel)
	require.Len(t, b.Results, 1)

	res := b.Results[0]
	assert.Equal(t, "abc123", res.FileSysID)
	assert.Equal(t, "v1", res.VersionSysID)
	assert.Equal(t, "Script Include", res.DisplayType)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, 1, res.Findings[0].Line)
	assert.Equal(t, findings.SeverityError, res.Findings[0].Severity)
	assert.Equal(t, "alice", res.Findings[0].Developer)

	assert.Equal(t, 1, tags.calls)
	assert.Equal(t, []blame.FileKey{{FileClassName: "sys_script_include", FileSysID: "abc123"}}, tags.keys)
}

func TestRunDeltaWindowValidation(t *testing.T) {
	for _, days := range []int{0, -1, 31} {
		records := &fakeRecords{}
		tags := &fakeTags{}

		_, err := newTestOrchestrator(t, records, tags, false).Run(context.Background(), Request{Mode: ModeDuration, DeltaDays: days})

		var validation *crnowerrors.ValidationError
		require.True(t, errors.As(err, &validation), "days=%d", days)
		assert.Zero(t, records.calls)
		assert.Zero(t, tags.calls)
	}
}

func TestRunRequestValidation(t *testing.T) {
	tests := []Request{
		{Mode: ModeUpdateSet},
		{Mode: ModeScopedApp},
		{Mode: "unknown"},
	}
	for _, req := range tests {
		records := &fakeRecords{}
		_, err := newTestOrchestrator(t, records, &fakeTags{}, false).Run(context.Background(), req)

		var validation *crnowerrors.ValidationError
		assert.True(t, errors.As(err, &validation), string(req.Mode))
		assert.Zero(t, records.calls)
	}
}

func TestRunExplicitListSkipsIncompleteEntries(t *testing.T) {
	records := &fakeRecords{}
	tags := &fakeTags{}

	b, err := newTestOrchestrator(t, records, tags, false).Run(context.Background(), Request{
		Mode:  ModeFiles,
		Files: []record.FileRef{{SysID: "abc"}},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoFiles, b.Outcome)
	assert.Empty(t, b.Results)
	assert.Zero(t, records.calls)
	assert.Zero(t, tags.calls)

	_, err = newTestOrchestrator(t, records, tags, false).Run(context.Background(), Request{
		Mode:  ModeFiles,
		Files: []record.FileRef{{SysID: "abc"}, {SysID: "def", ClassName: "sys_script"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []record.FileRef{{SysID: "def", ClassName: "sys_script"}}, records.refs)
}

func TestRunNoFiles(t *testing.T) {
	tags := &fakeTags{}
	b, err := newTestOrchestrator(t, &fakeRecords{}, tags, false).Run(context.Background(), Request{Mode: ModeScopedApp, ScopedAppID: "app"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoFiles, b.Outcome)
	assert.Zero(t, tags.calls)
}

func TestRunTagFailureIsFatal(t *testing.T) {
	records := &fakeRecords{flat: []record.FlatPayload{
		{"sys_id": "a", "sys_class_name": "sys_script", "name": "A", "script": "var a=1"},
	}}
	tags := &fakeTags{err: errors.New("connection refused")}

	b, err := newTestOrchestrator(t, records, tags, true).Run(context.Background(), Request{Mode: ModeDuration, DeltaDays: 2})
	assert.Nil(t, b)

	var upstream *crnowerrors.UpstreamError
	require.True(t, errors.As(err, &upstream))
}

func TestRunFetchFailure(t *testing.T) {
	records := &fakeRecords{err: crnowerrors.NewUpstreamError("fetch scoped app", 500, errors.New("boom"))}

	_, err := newTestOrchestrator(t, records, &fakeTags{}, false).Run(context.Background(), Request{Mode: ModeScopedApp, ScopedAppID: "app"})
	var upstream *crnowerrors.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 500, upstream.StatusCode)
}

func TestRunKeepsInputOrderAndOwnership(t *testing.T) {
	records := &fakeRecords{flat: []record.FlatPayload{
		{"sys_id": "a", "sys_class_name": "sys_script", "name": "A", "script": "var a=1"},
		{"sys_id": "skip", "sys_class_name": "sys_script", "name": "Empty"},
		{"sys_id": "b", "sys_class_name": "sys_script_include", "name": "B", "script": "var b=1;\nvar c=2"},
		{"sys_id": "a", "sys_class_name": "sys_script", "name": "A again", "script": "var a=1"},
		{"sys_id": "c", "sys_class_name": "sys_script_client", "name": "C", "script": "var c=1;"},
	}}
	tags := &fakeTags{tags: map[string]blame.FileTags{
		"b": {FileSysID: "b", VersionSysID: "vb", Tags: blame.TagMap{{Developer: "bob", Lines: []int{2}}}},
	}}

	b, err := newTestOrchestrator(t, records, tags, false).Run(context.Background(), Request{Mode: ModeDuration, DeltaDays: 5})
	require.NoError(t, err)

	var ids []string
	for _, r := range b.Results {
		ids = append(ids, r.FileSysID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	assert.Empty(t, b.Results[0].Findings)
	require.Len(t, b.Results[1].Findings, 1)
	assert.Equal(t, "bob", b.Results[1].Findings[0].Developer)
	assert.Equal(t, 2, b.Results[1].Findings[0].Line)
	assert.Equal(t, "vb", b.Results[1].VersionSysID)
	assert.Empty(t, b.Results[2].Findings)
	assert.Equal(t, 1, b.FindingsCount())
	assert.Len(t, tags.keys, 3)
}

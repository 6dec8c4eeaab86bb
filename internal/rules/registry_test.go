package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/crnow/internal/record"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

const (
	semiRule = `kind: object
description: Require semicolons
check:
  not_pattern: ';\s*$'
  pattern: '\S'
  message: Missing semicolon.
`
	includeOnlyRule = `kind: object
meta:
  description: Script includes only
  condition: "sys_class_name == 'sys_script_include'"
check:
  node_type: debugger_statement
  message: Unexpected 'debugger' statement.
`
	functionRule = `kind: function
condition: "contains(script, 'gs.log')"
check:
  pattern: 'gs\.log\('
  message: Use gs.info instead of gs.log.
`
	functionNoCondition = `kind: function
check:
  pattern: 'eval\('
  message: eval can be harmful.
`
	unknownShape = `kind: plugin
check:
  pattern: x
`
)

func writeRules(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestRegistry() *Registry {
	return NewRegistry(hclog.NewNullLogger())
}

func TestLoadRules(t *testing.T) {
	dir := writeRules(t, map[string]string{
		"semi.yaml":       semiRule,
		"b-include.yml":   includeOnlyRule,
		"README.md":       "# rules",
		"a-function.yaml": functionRule,
		"notes.txt":       "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	r := newTestRegistry()
	require.NoError(t, r.LoadRules(dir))

	assert.Equal(t, []string{"a-function", "b-include", "semi"}, r.IDs())
	assert.Contains(t, r.AllRuleIDs(), "semi")
	assert.NotContains(t, r.AllRuleIDs(), "README")

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, r.Dir())
}

func TestLoadRulesCachedPerDirectory(t *testing.T) {
	dir := writeRules(t, map[string]string{"semi.yaml": semiRule})

	r := newTestRegistry()
	require.NoError(t, r.LoadRules(dir))

	// files added after the first scan are not picked up
	require.NoError(t, os.WriteFile(filepath.Join(dir, "later.yaml"), []byte(semiRule), 0o644))
	require.NoError(t, r.LoadRules(dir))

	assert.Equal(t, []string{"semi"}, r.IDs())
}

func TestLoadRulesMissingDirectory(t *testing.T) {
	r := newTestRegistry()
	err := r.LoadRules(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Empty(t, r.IDs())
}

func TestResolve(t *testing.T) {
	dir := writeRules(t, map[string]string{
		"include.yaml": includeOnlyRule,
		"broken.yaml":  "kind: object\ncheck: [",
		"badre.yaml":   "kind: object\ncheck:\n  pattern: '('\n",
	})
	r := newTestRegistry()
	require.NoError(t, r.LoadRules(dir))

	rule, err := r.Resolve("include")
	require.NoError(t, err)
	assert.Equal(t, KindObject, rule.Kind)
	assert.Equal(t, "Script includes only", rule.Description)
	assert.Equal(t, "debugger_statement", rule.Check.NodeType)

	again, err := r.Resolve("include")
	require.NoError(t, err)
	assert.Same(t, rule, again)

	for _, id := range []string{"broken", "badre", "missing"} {
		_, err := r.Resolve(id)
		var loadErr *crnowerrors.RuleLoadError
		require.True(t, errors.As(err, &loadErr), id)
		assert.Equal(t, id, loadErr.RuleID)
	}
}

func TestSelectApplicable(t *testing.T) {
	dir := writeRules(t, map[string]string{
		"semi.yaml":    semiRule,
		"include.yaml": includeOnlyRule,
		"gslog.yaml":   functionRule,
		"eval.yaml":    functionNoCondition,
		"unknown.yaml": unknownShape,
		"broken.yaml":  "kind: object\ncheck: [",
		"missing.yaml": "kind: object\nmeta:\n  condition: \"no_such_field == 'x'\"\ncheck:\n  pattern: x\n",
	})
	r := newTestRegistry()
	require.NoError(t, r.LoadRules(dir))

	rec := &record.ScriptRecord{
		SysID:      "abc",
		ClassName:  "sys_script",
		ScriptBody: "gs.log('x')",
	}

	candidates := []string{"semi", "include", "gslog", "eval", "unknown", "broken", "missing", "semi"}
	selection, diagnostics := r.SelectApplicable(candidates, rec)

	assert.Equal(t, Selection{"semi", "gslog", "eval"}, selection)

	var failed []string
	for _, d := range diagnostics {
		failed = append(failed, d.RuleID)
		assert.Error(t, d.Err)
	}
	assert.Equal(t, []string{"broken", "missing"}, failed)

	rec.ClassName = "sys_script_include"
	rec.ScriptBody = "var x = 1;"
	selection, _ = r.SelectApplicable([]string{"semi", "include", "gslog"}, rec)
	assert.Equal(t, Selection{"semi", "include"}, selection)
}

func TestDefine(t *testing.T) {
	r := newTestRegistry()
	r.Define("inline", &Rule{ID: "inline", Kind: KindObject, Meta: &Meta{}})
	r.Define("never", &Rule{
		ID:   "never",
		Kind: KindFunction,
		Factory: func() *FunctionConfig {
			return &FunctionConfig{Condition: func(*record.ScriptRecord) (bool, error) { return false, nil }}
		},
	})

	selection, diagnostics := r.SelectApplicable([]string{"inline", "never"}, &record.ScriptRecord{})
	assert.Equal(t, Selection{"inline"}, selection)
	assert.Empty(t, diagnostics)
	assert.Equal(t, []string{"inline", "never"}, r.IDs())
}

func TestDescribe(t *testing.T) {
	dir := writeRules(t, map[string]string{
		"semi.yaml":   semiRule,
		"eval.yaml":   functionNoCondition,
		"broken.yaml": "kind: object\ncheck: [",
	})
	r := newTestRegistry()
	require.NoError(t, r.LoadRules(dir))

	described, diagnostics := r.Describe()
	require.Len(t, described, 2)
	assert.Equal(t, "eval", described[0].ID)
	assert.Equal(t, "semi", described[1].ID)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "broken", diagnostics[0].RuleID)
}

package review

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/crnow/internal/record"
	"github.com/scan-io-git/crnow/internal/rules"
)

const businessRuleScript = `(function executeRule(current, previous) {
	var id = "0123456789abcdef0123456789abcdef";
	debugger;
	gs.log("updated " + id);
	current.update();
})(current, previous);
`

func TestBundledRules(t *testing.T) {
	registry := rules.NewRegistry(hclog.NewNullLogger())
	require.NoError(t, registry.LoadRules(filepath.Join("..", "..", "rules")))

	described, diagnostics := registry.Describe()
	assert.Empty(t, diagnostics)
	assert.Len(t, described, 7)

	rec := &record.ScriptRecord{
		SysID:      "abc",
		ClassName:  "sys_script",
		FileName:   "Touch current",
		ScriptBody: businessRuleScript,
	}
	selection, diagnostics := registry.SelectApplicable(registry.IDs(), rec)
	require.Empty(t, diagnostics)
	assert.NotContains(t, selection, "no-gliderecord-client")
	assert.Contains(t, selection, "no-current-update-in-before")

	engine := NewEngine(registry, hclog.NewNullLogger())
	fs, err := engine.Review(context.Background(), rec.ScriptBody, selection, rec.Label())
	require.NoError(t, err)

	got := make(map[string]int)
	for _, f := range fs {
		got[f.RuleID] = f.Line
	}
	assert.Equal(t, map[string]int{
		"no-hardcoded-sysid":          2,
		"no-debugger":                 3,
		"no-gs-log":                   4,
		"no-current-update-in-before": 5,
	}, got)
}

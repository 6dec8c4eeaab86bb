package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/crnow/internal/record"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

// RuleExtensions lists the file extensions recognized as rule units.
var RuleExtensions = []string{".yaml", ".yml"}

// Selection is the ordered list of rule ids applicable to one record.
type Selection []string

// Diagnostic records a rule excluded from a selection because it failed.
type Diagnostic struct {
	RuleID string
	Err    error
}

type ruleRef struct {
	id   string
	path string
}

// dirCache remembers the rule files found in each directory so that a directory is scanned once.
type dirCache struct {
	mu   sync.Mutex
	dirs map[string][]ruleRef
}

func newDirCache() *dirCache {
	return &dirCache{dirs: make(map[string][]ruleRef)}
}

func (c *dirCache) getOrLoad(dir string) ([]ruleRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if refs, ok := c.dirs[dir]; ok {
		return refs, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory %q: %w", dir, err)
	}

	// os.ReadDir returns entries sorted by file name
	refs := make([]ruleRef, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isRuleFile(entry.Name()) {
			continue
		}
		name := entry.Name()
		refs = append(refs, ruleRef{
			id:   strings.TrimSuffix(name, filepath.Ext(name)),
			path: filepath.Join(dir, name),
		})
	}
	c.dirs[dir] = refs
	return refs, nil
}

func isRuleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range RuleExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

type entry struct {
	path     string
	rule     *Rule
	err      error
	resolved bool
}

// Registry maps rule ids to lazily loaded rule units.
type Registry struct {
	logger hclog.Logger
	cache  *dirCache

	mu      sync.RWMutex
	dir     string
	order   []string
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(logger hclog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		cache:   newDirCache(),
		entries: make(map[string]*entry),
	}
}

// LoadRules registers every rule file found directly in dir.
// Ids already registered keep their first definition.
func (r *Registry) LoadRules(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve rules directory %q: %w", dir, err)
	}

	refs, err := r.cache.getOrLoad(absDir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, ref := range refs {
		if _, ok := r.entries[ref.id]; ok {
			continue
		}
		r.entries[ref.id] = &entry{path: ref.path}
		r.order = append(r.order, ref.id)
		added++
	}
	r.dir = absDir

	r.logger.Debug("rules loaded", "dir", absDir, "found", len(refs), "added", added)
	return nil
}

// Define registers an already built rule under id, replacing any previous definition.
func (r *Registry) Define(id string, rule *Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		r.order = append(r.order, id)
	}
	r.entries[id] = &entry{rule: rule, resolved: true}
}

// Resolve returns the rule registered under id, parsing its file on first use.
func (r *Registry) Resolve(id string) (*Rule, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	if ok && e.resolved {
		r.mu.RUnlock()
		return e.rule, e.err
	}
	r.mu.RUnlock()

	if !ok {
		return nil, crnowerrors.NewRuleLoadError(id, fmt.Errorf("rule is not registered"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.resolved {
		return e.rule, e.err
	}
	rule, err := parseRuleFile(id, e.path)
	if err != nil {
		e.err = crnowerrors.NewRuleLoadError(id, err)
		r.logger.Warn("failed to load rule", "rule", id, "path", e.path, "error", err)
	} else {
		e.rule = rule
	}
	e.resolved = true
	return e.rule, e.err
}

// IDs returns the registered rule ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// AllRuleIDs returns the registered rule ids as a set.
func (r *Registry) AllRuleIDs() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]struct{}, len(r.order))
	for _, id := range r.order {
		ids[id] = struct{}{}
	}
	return ids
}

// Dir returns the absolute path of the rules directory last loaded.
func (r *Registry) Dir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir
}

// SelectApplicable filters candidates down to the rules applying to rec.
// A rule without a condition always applies. Rules of unknown shape are skipped silently;
// rules that fail to load or to evaluate are skipped with a diagnostic.
func (r *Registry) SelectApplicable(candidates []string, rec *record.ScriptRecord) (Selection, []Diagnostic) {
	var (
		selection   Selection
		diagnostics []Diagnostic
	)
	seen := make(map[string]struct{}, len(candidates))

	for _, id := range candidates {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		rule, err := r.Resolve(id)
		if err != nil {
			diagnostics = append(diagnostics, Diagnostic{RuleID: id, Err: err})
			continue
		}

		cond, ok := rule.Condition()
		if !ok {
			continue
		}
		if cond == nil {
			selection = append(selection, id)
			continue
		}

		applies, err := cond(rec)
		if err != nil {
			diagnostics = append(diagnostics, Diagnostic{RuleID: id, Err: crnowerrors.NewRuleLoadError(id, err)})
			continue
		}
		if applies {
			selection = append(selection, id)
		}
	}
	return selection, diagnostics
}

// Describe resolves every registered rule, returning them sorted by id along with load failures.
func (r *Registry) Describe() ([]*Rule, []Diagnostic) {
	var (
		described   []*Rule
		diagnostics []Diagnostic
	)
	for _, id := range r.IDs() {
		rule, err := r.Resolve(id)
		if err != nil {
			diagnostics = append(diagnostics, Diagnostic{RuleID: id, Err: err})
			continue
		}
		described = append(described, rule)
	}
	sort.Slice(described, func(i, j int) bool { return described[i].ID < described[j].ID })
	return described, diagnostics
}

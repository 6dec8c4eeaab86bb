package rules

import (
	"fmt"
	"regexp"

	"github.com/scan-io-git/crnow/internal/record"
)

// Kind is the shape a rule unit was declared with.
type Kind int

const (
	// KindUnknown marks a rule whose shape is not recognized; such rules never apply.
	KindUnknown Kind = iota
	// KindFunction rules expose a factory returning an optional condition.
	KindFunction
	// KindObject rules carry their condition in Meta.
	KindObject
)

// String returns the name used for the kind in rule files.
func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ConditionFunc decides whether a rule applies to a record.
type ConditionFunc func(rec *record.ScriptRecord) (bool, error)

// FunctionConfig is what a function rule's factory returns.
type FunctionConfig struct {
	Condition ConditionFunc
}

// Meta is the metadata block of an object rule.
type Meta struct {
	Description   string
	ConditionFunc ConditionFunc
}

// Rule is a named, independently loaded unit of review logic.
type Rule struct {
	ID          string
	Description string
	Kind        Kind

	// Factory is set for KindFunction rules. It may return nil.
	Factory func() *FunctionConfig
	// Meta is set for KindObject rules.
	Meta *Meta

	Check Check
}

// Condition extracts the rule's optional condition regardless of its kind.
// ok is false when the rule shape is not recognized.
func (r *Rule) Condition() (cond ConditionFunc, ok bool) {
	if r == nil {
		return nil, false
	}
	switch r.Kind {
	case KindFunction:
		if r.Factory == nil {
			return nil, false
		}
		if cfg := r.Factory(); cfg != nil {
			return cfg.Condition, true
		}
		return nil, true
	case KindObject:
		if r.Meta == nil {
			return nil, false
		}
		return r.Meta.ConditionFunc, true
	default:
		return nil, false
	}
}

// Check is the checker part of a rule.
// Checks with a NodeType match syntax tree nodes, the others match source lines.
type Check struct {
	NodeType   string `yaml:"node_type"`
	Pattern    string `yaml:"pattern"`
	NotPattern string `yaml:"not_pattern"`
	Message    string `yaml:"message"`

	pattern    *regexp.Regexp
	notPattern *regexp.Regexp
}

// Compile prepares the check's expressions.
func (c *Check) Compile() error {
	if c.NodeType == "" && c.Pattern == "" && c.NotPattern == "" {
		return fmt.Errorf("check needs at least one of node_type, pattern or not_pattern")
	}
	var err error
	if c.Pattern != "" {
		if c.pattern, err = regexp.Compile(c.Pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}
	if c.NotPattern != "" {
		if c.notPattern, err = regexp.Compile(c.NotPattern); err != nil {
			return fmt.Errorf("invalid not_pattern: %w", err)
		}
	}
	return nil
}

// Matches reports whether text violates the check.
func (c *Check) Matches(text string) bool {
	if c.pattern != nil && !c.pattern.MatchString(text) {
		return false
	}
	if c.notPattern != nil && c.notPattern.MatchString(text) {
		return false
	}
	return true
}

// MatchesNodes reports whether the check walks the syntax tree.
func (c *Check) MatchesNodes() bool {
	return c.NodeType != ""
}

package review

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/scan-io-git/crnow/internal/findings"
	"github.com/scan-io-git/crnow/internal/rules"
)

// ParsingErrorMessage prefixes the finding raised for a script that does not parse.
const ParsingErrorMessage = "Parsing error"

// RuleResolver resolves rule ids to loaded rules.
type RuleResolver interface {
	Resolve(id string) (*rules.Rule, error)
}

// Engine runs selected rules against JavaScript sources.
// Review is safe for concurrent use; a parser is created per call.
type Engine struct {
	registry RuleResolver
	logger   hclog.Logger
}

// NewEngine creates an engine resolving rules through registry.
func NewEngine(registry RuleResolver, logger hclog.Logger) *Engine {
	return &Engine{
		registry: registry,
		logger:   logger,
	}
}

type selectedRule struct {
	id    string
	check *rules.Check
}

// Review runs exactly the rules in selection against body at error severity.
// A body that does not parse yields a single parsing error finding.
func (e *Engine) Review(ctx context.Context, body string, selection rules.Selection, fileLabel string) ([]findings.Finding, error) {
	if body == "" || len(selection) == 0 {
		return []findings.Finding{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected := e.resolve(selection, fileLabel)
	source := []byte(body)
	lines := SplitLines(body)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", fileLabel, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var result []findings.Finding
	if root.HasError() {
		result = append(result, parsingError(root, source))
	} else {
		for _, rule := range selected {
			if rule.check.MatchesNodes() {
				result = append(result, checkNodes(root, source, rule)...)
			} else {
				result = append(result, checkLines(lines, rule)...)
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Line != result[j].Line {
			return result[i].Line < result[j].Line
		}
		if result[i].RuleID != result[j].RuleID {
			return result[i].RuleID < result[j].RuleID
		}
		return result[i].Column < result[j].Column
	})
	for i := range result {
		result[i].Context = ContextWindow(lines, result[i].Line)
	}

	e.logger.Debug("script reviewed", "file", fileLabel, "rules", len(selected), "findings", len(result))
	return result, nil
}

func (e *Engine) resolve(selection rules.Selection, fileLabel string) []selectedRule {
	selected := make([]selectedRule, 0, len(selection))
	for _, id := range selection {
		rule, err := e.registry.Resolve(id)
		if err != nil || rule == nil {
			e.logger.Warn("skipping rule", "rule", id, "file", fileLabel, "error", err)
			continue
		}
		selected = append(selected, selectedRule{id: id, check: &rule.Check})
	}
	return selected
}

func message(rule selectedRule) string {
	if rule.check.Message != "" {
		return rule.check.Message
	}
	return fmt.Sprintf("Violation of rule %s.", rule.id)
}

func checkLines(lines []string, rule selectedRule) []findings.Finding {
	var result []findings.Finding
	for i, line := range lines {
		if rule.check.Matches(line) {
			result = append(result, findings.New(i+1, 1, rule.id, message(rule), findings.ErrorSeverity))
		}
	}
	return result
}

func checkNodes(root *sitter.Node, source []byte, rule selectedRule) []findings.Finding {
	var result []findings.Finding
	walk(root, func(node *sitter.Node) bool {
		if node.Type() != rule.check.NodeType {
			return true
		}
		if rule.check.Matches(node.Content(source)) {
			start := node.StartPoint()
			result = append(result, findings.New(int(start.Row)+1, int(start.Column)+1, rule.id, message(rule), findings.ErrorSeverity))
		}
		return true
	})
	return result
}

func parsingError(root *sitter.Node, source []byte) findings.Finding {
	var failed *sitter.Node
	walk(root, func(node *sitter.Node) bool {
		if failed != nil {
			return false
		}
		if node.IsError() || node.IsMissing() {
			failed = node
			return false
		}
		return true
	})
	if failed == nil {
		failed = root
	}

	msg := ParsingErrorMessage + ": Unexpected token"
	if failed.IsMissing() {
		msg = fmt.Sprintf("%s: Missing %s", ParsingErrorMessage, failed.Type())
	} else if token := firstToken(failed.Content(source)); token != "" {
		msg = fmt.Sprintf("%s: Unexpected token %s", ParsingErrorMessage, token)
	}

	start := failed.StartPoint()
	return findings.New(int(start.Row)+1, int(start.Column)+1, "", msg, findings.ErrorSeverity)
}

func firstToken(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// walk visits node and its descendants depth first until visit returns false for a subtree.
func walk(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), visit)
	}
}

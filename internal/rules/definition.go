package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/Knetic/govaluate.v3"
	yaml "gopkg.in/yaml.v2"

	"github.com/scan-io-git/crnow/internal/record"
)

// definition is the YAML form of a rule unit.
type definition struct {
	Kind        string `yaml:"kind"`
	Description string `yaml:"description"`
	Condition   string `yaml:"condition"`
	Meta        struct {
		Description string `yaml:"description"`
		Condition   string `yaml:"condition"`
	} `yaml:"meta"`
	Check Check `yaml:"check"`
}

// conditionFunctions are available to every condition expression.
var conditionFunctions = map[string]govaluate.ExpressionFunction{
	"contains":   stringPredicate(strings.Contains),
	"startsWith": stringPredicate(strings.HasPrefix),
	"endsWith":   stringPredicate(strings.HasSuffix),
}

func stringPredicate(f func(s, sub string) bool) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
		}
		s, ok1 := args[0].(string)
		sub, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return false, nil
		}
		return f(s, sub), nil
	}
}

// parseRuleFile reads and compiles the rule unit at path.
func parseRuleFile(id, path string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return parseRule(id, data)
}

func parseRule(id string, data []byte) (*Rule, error) {
	var def definition
	if err := yaml.UnmarshalStrict(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode rule: %w", err)
	}

	rule := &Rule{
		ID:          id,
		Description: firstNonEmpty(def.Description, def.Meta.Description),
		Check:       def.Check,
	}
	if err := rule.Check.Compile(); err != nil {
		return nil, err
	}

	switch strings.ToLower(def.Kind) {
	case "function":
		cond, err := compileCondition(def.Condition)
		if err != nil {
			return nil, err
		}
		rule.Kind = KindFunction
		rule.Factory = func() *FunctionConfig {
			if cond == nil {
				return nil
			}
			return &FunctionConfig{Condition: cond}
		}
	case "object":
		cond, err := compileCondition(def.Meta.Condition)
		if err != nil {
			return nil, err
		}
		rule.Kind = KindObject
		rule.Meta = &Meta{Description: def.Meta.Description, ConditionFunc: cond}
	default:
		rule.Kind = KindUnknown
	}

	return rule, nil
}

// compileCondition turns an expression over record fields into a ConditionFunc.
// An empty expression yields a nil ConditionFunc.
func compileCondition(expression string) (ConditionFunc, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, conditionFunctions)
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expression, err)
	}
	return func(rec *record.ScriptRecord) (bool, error) {
		result, err := expr.Evaluate(rec.Params())
		if err != nil {
			return false, fmt.Errorf("condition %q: %w", expression, err)
		}
		return truthy(result), nil
	}, nil
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	default:
		return true
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package findings

// UnknownDeveloper is the owner assigned to findings no tag map entry claims.
const UnknownDeveloper = "UNKNOWN"

// ErrorSeverity is the engine severity every selected rule runs at.
const ErrorSeverity = 2

// SeverityLevel is the user-facing severity of a finding.
type SeverityLevel string

const (
	SeverityError   SeverityLevel = "error"
	SeverityWarning SeverityLevel = "warning"
)

// SeverityFromLevel maps the engine's numeric severity to a SeverityLevel.
func SeverityFromLevel(level int) SeverityLevel {
	if level == ErrorSeverity {
		return SeverityError
	}
	return SeverityWarning
}

// ContextLine is one source line shown around a finding.
type ContextLine struct {
	Line        int    `json:"line"`
	Source      string `json:"source"`
	IsErrorLine bool   `json:"is_error_line"`
}

// Finding is a single line-numbered issue raised by a rule.
type Finding struct {
	Line      int           `json:"line"`
	Column    int           `json:"column,omitempty"`
	RuleID    string        `json:"rule_id"`
	Message   string        `json:"message"`
	Severity  SeverityLevel `json:"severity"`
	Developer string        `json:"developer"`

	Context []ContextLine `json:"context,omitempty"`
}

// New returns a finding owned by UnknownDeveloper.
func New(line, column int, ruleID, message string, level int) Finding {
	return Finding{
		Line:      line,
		Column:    column,
		RuleID:    ruleID,
		Message:   message,
		Severity:  SeverityFromLevel(level),
		Developer: UnknownDeveloper,
	}
}

// IsOwned reports whether a developer has been attributed to the finding.
func (f Finding) IsOwned() bool {
	return f.Developer != "" && f.Developer != UnknownDeveloper
}

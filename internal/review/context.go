package review

import (
	"strings"

	"github.com/scan-io-git/crnow/internal/findings"
)

// SplitLines splits a script body into source lines.
func SplitLines(body string) []string {
	return strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
}

// ContextWindow returns the lines around the 1-based line: one before, the line itself and one after.
// When the line is the last or second to last one, the window runs to the end of the file.
func ContextWindow(lines []string, line int) []findings.ContextLine {
	total := len(lines)
	errLineNo := line - 1

	start := errLineNo - 1
	if start < 0 {
		start = 0
	}
	end := errLineNo + 2
	if errLineNo+1 >= total-1 {
		end = total
	}
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}

	window := make([]findings.ContextLine, 0, end-start)
	for i, source := range lines[start:end] {
		n := start + 1 + i
		window = append(window, findings.ContextLine{
			Line:        n,
			Source:      source,
			IsErrorLine: n == errLineNo+1,
		})
	}
	return window
}

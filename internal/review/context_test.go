package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scan-io-git/crnow/internal/findings"
)

func TestContextWindow(t *testing.T) {
	lines := []string{"l1", "l2", "l3", "l4", "l5"}

	tests := []struct {
		name string
		line int
		want []findings.ContextLine
	}{
		{
			name: "first line",
			line: 1,
			want: []findings.ContextLine{
				{Line: 1, Source: "l1", IsErrorLine: true},
				{Line: 2, Source: "l2"},
			},
		},
		{
			name: "middle line",
			line: 3,
			want: []findings.ContextLine{
				{Line: 2, Source: "l2"},
				{Line: 3, Source: "l3", IsErrorLine: true},
				{Line: 4, Source: "l4"},
			},
		},
		{
			name: "second to last line runs to the end",
			line: 4,
			want: []findings.ContextLine{
				{Line: 3, Source: "l3"},
				{Line: 4, Source: "l4", IsErrorLine: true},
				{Line: 5, Source: "l5"},
			},
		},
		{
			name: "last line",
			line: 5,
			want: []findings.ContextLine{
				{Line: 4, Source: "l4"},
				{Line: 5, Source: "l5", IsErrorLine: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContextWindow(lines, tt.line))
		})
	}
}

func TestContextWindowBounds(t *testing.T) {
	lines := SplitLines("a\nb\nc\nd\ne")

	window := ContextWindow(lines, 1)
	assert.LessOrEqual(t, len(window), 3)
	assert.Equal(t, 1, window[0].Line)
	for _, l := range window {
		assert.Positive(t, l.Line)
	}

	window = ContextWindow(lines, len(lines))
	assert.Equal(t, len(lines), window[len(window)-1].Line)

	assert.Equal(t, []findings.ContextLine{{Line: 1, Source: "only", IsErrorLine: true}}, ContextWindow([]string{"only"}, 1))
	assert.Empty(t, ContextWindow(lines, 9))
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", ""}, SplitLines("a\r\nb\n"))
}

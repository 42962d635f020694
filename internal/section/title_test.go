package section

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "heading", input: "# Intro", want: "Intro"},
		{name: "deeper heading", input: "#### Setup notes\nbody", want: "Setup notes"},
		{name: "heading after blank lines", input: "\n\n  ## Plan  \nmore", want: "Plan"},
		{name: "bold", input: "**Plan**\nDetails", want: "Plan"},
		{name: "bold with trailing text", input: "**Step 1** do the thing", want: "Step 1"},
		{name: "line above separator", input: "Intro text\nSummary line\n---\nbody", want: "Summary line"},
		{name: "line above separator keeps every sentence", input: "Overview. Details follow\n---\nbody", want: "Overview. Details follow"},
		{name: "underscore separator", input: "a\nTitle above\n___\nrest", want: "Title above"},
		{name: "first line", input: "Hello there\nsecond line", want: "Hello there"},
		{name: "first sentence of first line", input: "Just a sentence. More text.", want: "Just a sentence."},
		{name: "question", input: "Can you help? I need a hand.", want: "Can you help?"},
		{name: "version number is not a sentence end", input: "Release v1.2 notes", want: "Release v1.2 notes"},
		{name: "separator first line", input: "---\nAfter the rule. Then more.", want: "After the rule."},
		{name: "only separators", input: "---\n===", want: "---"},
		{name: "empty heading falls through", input: "#\nNext line", want: "#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTitle(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTitle_Blank(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t\n"} {
		_, ok := ExtractTitle(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestExtractTitle_ScenarioA(t *testing.T) {
	inputs := []string{"# Intro", "**Plan**\nDetails", "Just a sentence. More text."}
	want := []string{"Intro", "Plan", "Just a sentence."}

	for i, in := range inputs {
		got, ok := ExtractTitle(in)
		require.True(t, ok)
		assert.Equal(t, want[i], got)
	}
}

func TestExtractTitle_TruncationLaw(t *testing.T) {
	long := strings.Repeat("abcdefghij", 8) // 80 runes
	inputs := []string{long, "# " + long, "**" + long + "**"}

	for _, in := range inputs {
		got, ok := ExtractTitle(in)
		require.True(t, ok)
		assert.Equal(t, MaxTitleRunes+1, utf8.RuneCountInString(got))
		assert.True(t, strings.HasPrefix(got, long[:MaxTitleRunes]))
		assert.True(t, strings.HasSuffix(got, Ellipsis))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "short", input: "short", want: "short"},
		{name: "exactly max", input: strings.Repeat("x", 60), want: strings.Repeat("x", 60)},
		{name: "one over", input: strings.Repeat("x", 61), want: strings.Repeat("x", 60) + Ellipsis},
		{name: "multibyte", input: strings.Repeat("가", 70), want: strings.Repeat("가", 60) + Ellipsis},
		{name: "trims first", input: "  padded  ", want: "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.input))
		})
	}
}

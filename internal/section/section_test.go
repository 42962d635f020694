package section

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/chattoc/internal/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercase", input: "Hello World", want: "hello world"},
		{name: "trim", input: "  hello  ", want: "hello"},
		{name: "collapse", input: "hello \t\n world", want: "hello world"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "setup::chat-toc-1", DedupKey("  Setup ", "chat-toc-1"))
	assert.NotEqual(t, DedupKey("Setup", "chat-toc-1"), DedupKey("Setup", "chat-toc-2"))
	assert.Equal(t, DedupKey("SETUP  guide", "a"), DedupKey("setup guide", "a"))
}

func TestClassify(t *testing.T) {
	assistant := BadgeAssistant
	user := BadgeUser

	tests := []struct {
		name string
		attr string
		text string
		prev *Badge
		want Badge
	}{
		{name: "attr assistant", attr: "Assistant-Message", text: "user said", want: BadgeAssistant},
		{name: "attr user", attr: "USER", text: "assistant", want: BadgeUser},
		{name: "attr without token falls to text", attr: "message", text: "Assistant: hi", want: BadgeAssistant},
		{name: "text user", text: "The user wants tea", want: BadgeUser},
		{name: "alternates from assistant", text: "hello", prev: &assistant, want: BadgeUser},
		{name: "alternates from user", text: "hello", prev: &user, want: BadgeAssistant},
		{name: "first entry defaults to user", text: "hello", want: BadgeUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.attr, tt.text, tt.prev))
		})
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("Deploy  Plan", "deploy plan"))
	assert.True(t, Matches("Deploy Plan", ""))
	assert.True(t, Matches("Deploy Plan", "  PLAN "))
	assert.False(t, Matches("Deploy Plan", "rollback"))
}

func TestFormatExport(t *testing.T) {
	out, err := FormatExport("p", []Summary{
		{Title: "Intro", Badge: BadgeUser, Position: 1},
		{Title: "Answer", Badge: BadgeAssistant, Position: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "#1 User Intro\n#2 Assistant Answer", out)

	_, err = FormatExport("p", nil)
	assert.True(t, errors.Is(err, errors.ErrNothingToExport))
}

func TestSummaryJSON(t *testing.T) {
	e := Entry[int]{Title: "Intro", Badge: BadgeAssistant, Position: 3, AnchorID: "chat-toc-9", Node: 42}
	data, err := json.Marshal(e.Summary())
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Intro","badge":"Assistant","position":"#3"}`, string(data))

	var s Summary
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, Summary{Title: "Intro", Badge: BadgeAssistant, Position: 3}, s)

	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","badge":"user","position":1}`), &s))
	assert.Equal(t, Summary{Title: "x", Badge: BadgeUser, Position: 1}, s)

	err = json.Unmarshal([]byte(`{"title":"x","badge":"user","position":"first"}`), &s)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"title":"x","badge":"robot","position":1}`), &s)
	assert.Error(t, err)
}

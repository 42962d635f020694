package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/chattoc/internal/errors"
)

func TestSearch(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	_, err := Store(ctx, database, StoreInput{Page: "go chat", Sections: summaries("Install Go", "<script>go</script>")})
	require.NoError(t, err)
	_, err = Store(ctx, database, StoreInput{Page: "rust chat", Sections: summaries("Borrow checker")})
	require.NoError(t, err)

	out, err := Search(ctx, database, SearchInput{Query: "  GO "})
	require.NoError(t, err)
	require.Equal(t, 2, out.Pagination.Total)
	require.False(t, out.Pagination.HasMore)
	require.Equal(t, "#1", out.Items[0].Label)
	require.Equal(t, "Install <b>Go</b>", out.Items[0].Highlight)
	require.Equal(t, "&lt;script&gt;<b>go</b>&lt;/script&gt;", out.Items[1].Highlight)

	out, err = Search(ctx, database, SearchInput{Query: "go", Page: "rust chat"})
	require.NoError(t, err)
	require.Empty(t, out.Items)

	out, err = Search(ctx, database, SearchInput{Query: "o", Limit: 1})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	require.True(t, out.Pagination.HasMore)
}

func TestSearch_Validation(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	_, err := Search(ctx, database, SearchInput{Query: "   "})
	requireCode(t, err, errors.ErrInvalidRequest)

	_, err = Search(ctx, database, SearchInput{Query: strings.Repeat("x", MaxQueryLength+1)})
	requireCode(t, err, errors.ErrInvalidRequest)
}

func TestHighlightHTML(t *testing.T) {
	tests := []struct {
		title, term, want string
	}{
		{"Install Go", "go", "Install <b>Go</b>"},
		{"a & b", "b", "a &amp; <b>b</b>"},
		{"no match", "zzz", "no match"},
		{"Spaced  out", "spaced out", "Spaced  out"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, highlightHTML(tt.title, tt.term), tt.title)
	}
}

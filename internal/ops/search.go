package ops

import (
	"context"
	"database/sql"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/chattoc/internal/db"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
)

// MaxQueryLength bounds search terms.
const MaxQueryLength = db.MaxSearchQueryChars

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string // required
	Page   string // optional filter
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// SearchResultItem is a matching entry with its highlighted title.
type SearchResultItem struct {
	db.Hit
	Label string `json:"label"`
	// Highlight is HTML-safe: the title is escaped and only <b>...</b> marks the match.
	Highlight string `json:"highlight"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []SearchResultItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"`
}

// Search finds entries of the latest snapshots whose title matches the query,
// with the same normalized substring test the live panel filter uses.
func Search(ctx context.Context, database *sql.DB, input SearchInput) (*SearchOutput, error) {
	query := section.Normalize(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	limit, offset := bounds(input.Limit, input.Offset)

	hits, total, err := db.SearchEntries(ctx, database, query, section.Normalize(input.Page), limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResultItem, len(hits))
	for i, h := range hits {
		items[i] = SearchResultItem{
			Hit:       h,
			Label:     h.Entry.Label(),
			Highlight: highlightHTML(h.Entry.Title, query),
		}
	}

	return &SearchOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}

// highlightHTML escapes title and wraps the first case-insensitive occurrence
// of the normalized term in <b> tags. Titles whose lowercase form changes byte
// length, or whose match spans collapsed whitespace, are returned escaped only.
func highlightHTML(title, termNorm string) string {
	lower := strings.ToLower(title)
	idx := strings.Index(lower, termNorm)
	if idx < 0 || len(lower) != len(title) {
		return html.EscapeString(title)
	}
	end := idx + len(termNorm)
	return html.EscapeString(title[:idx]) +
		"<b>" + html.EscapeString(title[idx:end]) + "</b>" +
		html.EscapeString(title[end:])
}

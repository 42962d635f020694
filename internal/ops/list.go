package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/chattoc/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []db.PageSummary `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// List returns the cached pages, most recently updated first.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	limit, offset := bounds(input.Limit, input.Offset)

	pages, total, err := db.ListPages(ctx, database, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if pages == nil {
		pages = []db.PageSummary{}
	}

	return &ListOutput{
		Items: pages,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(pages) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}

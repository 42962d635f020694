package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/chattoc/internal/db"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Page string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Page      string `json:"page"`
	Snapshots int    `json:"snapshots"`
}

// Delete removes every cached snapshot of a page.
func Delete(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	page := section.Normalize(input.Page)
	if page == "" {
		return nil, errors.NewInvalidRequest("page is required")
	}
	n, err := db.DeletePage(ctx, database, page)
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{Page: page, Snapshots: n}, nil
}

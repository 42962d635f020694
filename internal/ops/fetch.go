package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/chattoc/internal/db"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID   string
	Page string
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	db.Snapshot
	Entries int `json:"entries"`
}

// Fetch retrieves a snapshot by ID, or the latest snapshot of a page.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	addr, err := ValidateAddress(input.ID, input.Page)
	if err != nil {
		return nil, err
	}

	var s *db.Snapshot
	if addr.ByID {
		s, err = db.GetSnapshot(ctx, database, addr.ID)
	} else {
		s, err = db.GetLatest(ctx, database, addr.Page)
	}
	if err != nil {
		return nil, err
	}

	return &FetchOutput{Snapshot: *s, Entries: len(s.Sections)}, nil
}

package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/chattoc/internal/db"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
)

// PruneInput contains parameters for the Prune operation.
type PruneInput struct {
	Page string // required
	Keep int    // snapshots to keep, default: 1
}

// PruneOutput contains the result of the Prune operation.
type PruneOutput struct {
	Pruned  int    `json:"pruned"`
	Message string `json:"message"`
}

// Prune deletes older snapshots of a page, keeping the newest Keep.
func Prune(ctx context.Context, database *sql.DB, input PruneInput) (*PruneOutput, error) {
	page := section.Normalize(input.Page)
	if page == "" {
		return nil, errors.NewInvalidRequest("page is required")
	}
	keep := input.Keep
	if keep <= 0 {
		keep = 1
	}

	count, err := db.PruneSnapshots(ctx, database, page, keep)
	if err != nil {
		return nil, err
	}

	return &PruneOutput{
		Pruned:  count,
		Message: formatPruneMessage(count, page),
	}, nil
}

// formatPruneMessage creates a human-readable message for the prune result.
func formatPruneMessage(count int, page string) string {
	if count == 0 {
		return fmt.Sprintf("No old snapshots of %q to prune", page)
	}
	word := "snapshot"
	if count > 1 {
		word = "snapshots"
	}
	return fmt.Sprintf("Deleted %d old %s of %q", count, word, page)
}

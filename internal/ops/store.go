package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/chattoc/internal/db"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
)

// StoreInput contains parameters for the Store operation.
type StoreInput struct {
	Page     string            // required
	Sections []section.Summary // may be empty: an empty index is a valid snapshot
	Keep     int               // snapshots kept per page, default: DefaultKeep
}

// StoreOutput contains the result of the Store operation.
type StoreOutput struct {
	ID      string `json:"id"`
	Page    string `json:"page"`
	Entries int    `json:"entries"`
	Pruned  int    `json:"pruned"`
}

// Store records a published index as the newest snapshot of its page and
// prunes older snapshots beyond Keep. Snapshot IDs come from ulid.Make, which is
// monotonic within a millisecond, so ID order is insertion order.
func Store(ctx context.Context, database *sql.DB, input StoreInput) (*StoreOutput, error) {
	page := strings.TrimSpace(input.Page)
	pageNorm := section.Normalize(page)
	if pageNorm == "" {
		return nil, errors.NewInvalidRequest("page is required")
	}
	if err := validateSections(input.Sections); err != nil {
		return nil, err
	}
	keep := input.Keep
	if keep <= 0 {
		keep = DefaultKeep
	}

	id := ulid.Make()
	snap := &db.Snapshot{
		ID:        id.String(),
		Page:      page,
		PageNorm:  pageNorm,
		Sections:  input.Sections,
		CreatedAt: int64(id.Time()),
	}
	if err := db.InsertSnapshot(ctx, database, snap); err != nil {
		return nil, err
	}

	pruned, err := db.PruneSnapshots(ctx, database, pageNorm, keep)
	if err != nil {
		return nil, err
	}

	return &StoreOutput{
		ID:      snap.ID,
		Page:    page,
		Entries: len(input.Sections),
		Pruned:  pruned,
	}, nil
}

// validateSections requires positions 1..n in order and known badges.
func validateSections(items []section.Summary) error {
	for i, s := range items {
		if s.Position != i+1 {
			return errors.NewInvalidRequest(fmt.Sprintf("section %d has position %d", i+1, s.Position))
		}
		if _, ok := section.ParseBadge(string(s.Badge)); !ok {
			return errors.NewInvalidRequest(fmt.Sprintf("section %d has unknown badge %q", i+1, s.Badge))
		}
		if strings.TrimSpace(s.Title) == "" {
			return errors.NewInvalidRequest(fmt.Sprintf("section %d has an empty title", i+1))
		}
	}
	return nil
}

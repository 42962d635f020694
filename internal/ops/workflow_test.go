package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/chattoc/internal/db"
	"github.com/hpungsan/chattoc/internal/errors"
)

// TestFullWorkflow exercises the snapshot lifecycle:
// store → fetch → store again → list → search → prune → delete → fetch (not found)
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	// 1. Store
	first, err := Store(ctx, database, StoreInput{Page: "Workflow", Sections: summaries("Intro")})
	require.NoError(t, err)

	// 2. Fetch by id
	fetched, err := Fetch(ctx, database, FetchInput{ID: first.ID})
	require.NoError(t, err)
	require.Equal(t, "Workflow", fetched.Page)
	require.Equal(t, 1, fetched.Entries)

	// 3. Store a newer index
	second, err := Store(ctx, database, StoreInput{Page: "workflow", Sections: summaries("Intro", "Setup steps")})
	require.NoError(t, err)

	latest, err := Fetch(ctx, database, FetchInput{Page: "WORKFLOW"})
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)

	// 4. List
	list, err := List(ctx, database, ListInput{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, 2, list.Items[0].Snapshots)

	// 5. Search sees only the latest snapshot
	found, err := Search(ctx, database, SearchInput{Query: "setup"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	require.Equal(t, second.ID, found.Items[0].SnapshotID)

	// 6. Prune
	pruned, err := Prune(ctx, database, PruneInput{Page: "workflow"})
	require.NoError(t, err)
	require.Equal(t, 1, pruned.Pruned)
	require.Equal(t, `Deleted 1 old snapshot of "workflow"`, pruned.Message)

	_, err = Fetch(ctx, database, FetchInput{ID: first.ID})
	requireCode(t, err, errors.ErrNotFound)

	// 7. Delete
	deleted, err := Delete(ctx, database, DeleteInput{Page: "workflow"})
	require.NoError(t, err)
	require.Equal(t, 1, deleted.Snapshots)

	// 8. Fetch - 404
	_, err = Fetch(ctx, database, FetchInput{Page: "workflow"})
	requireCode(t, err, errors.ErrNotFound)
}

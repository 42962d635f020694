package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
)

// Snapshot is one published index of a page, as received in an updateToc message.
type Snapshot struct {
	ID        string            `json:"id"`
	Page      string            `json:"page"`
	PageNorm  string            `json:"-"`
	Sections  []section.Summary `json:"sections"`
	CreatedAt int64             `json:"created_at"`
}

// PageSummary describes the latest snapshot of a page.
type PageSummary struct {
	Page       string `json:"page"`
	SnapshotID string `json:"snapshot_id"`
	Entries    int    `json:"entries"`
	UpdatedAt  int64  `json:"updated_at"`
	Snapshots  int    `json:"snapshots"`
}

// Hit is one entry of a latest snapshot matching a search.
type Hit struct {
	Page       string          `json:"page"`
	SnapshotID string          `json:"snapshot_id"`
	Entry      section.Summary `json:"entry"`
}

// MaxSearchQueryChars bounds search terms.
const MaxSearchQueryChars = 200

// latestSnapshots selects the newest snapshot id of each page.
const latestSnapshots = `
	SELECT s.id FROM snapshots s
	WHERE s.id = (
		SELECT s2.id FROM snapshots s2
		WHERE s2.page_norm = s.page_norm
		ORDER BY s2.created_at DESC, s2.id DESC
		LIMIT 1
	)`

// InsertSnapshot stores a snapshot and its entries in one transaction.
func InsertSnapshot(ctx context.Context, db *sql.DB, s *Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, page_raw, page_norm, entry_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.Page, s.PageNorm, len(s.Sections), s.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO toc_entries (snapshot_id, position, title, title_norm, badge)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, e := range s.Sections {
		if _, err := stmt.ExecContext(ctx, s.ID, e.Position, e.Title, section.Normalize(e.Title), string(e.Badge)); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSnapshot retrieves a snapshot by its ULID.
func GetSnapshot(ctx context.Context, db *sql.DB, id string) (*Snapshot, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, page_raw, page_norm, created_at FROM snapshots WHERE id = ?
	`, id)
	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := loadEntries(ctx, db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetLatest retrieves the newest snapshot of a normalized page name.
func GetLatest(ctx context.Context, db *sql.DB, pageNorm string) (*Snapshot, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, page_raw, page_norm, created_at FROM snapshots
		WHERE page_norm = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, pageNorm)
	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(pageNorm)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := loadEntries(ctx, db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListPages returns the latest snapshot of every page, most recently updated first,
// along with the total number of pages.
func ListPages(ctx context.Context, db *sql.DB, limit, offset int) ([]PageSummary, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT page_norm) FROM snapshots`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT s.page_raw, s.id, s.entry_count, s.created_at,
			(SELECT COUNT(*) FROM snapshots c WHERE c.page_norm = s.page_norm)
		FROM snapshots s
		WHERE s.id IN (`+latestSnapshots+`)
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []PageSummary
	for rows.Next() {
		var p PageSummary
		if err := rows.Scan(&p.Page, &p.SnapshotID, &p.Entries, &p.UpdatedAt, &p.Snapshots); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// SearchEntries finds entries of the latest snapshots whose normalized title
// contains termNorm. pageNorm, when not empty, restricts the search to one page.
func SearchEntries(ctx context.Context, db *sql.DB, termNorm, pageNorm string, limit, offset int) ([]Hit, int, error) {
	where := `e.snapshot_id IN (` + latestSnapshots + `) AND e.title_norm LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(termNorm) + "%"}
	if pageNorm != "" {
		where += ` AND s.page_norm = ?`
		args = append(args, pageNorm)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM toc_entries e JOIN snapshots s ON s.id = e.snapshot_id WHERE ` + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT s.page_raw, s.id, e.position, e.title, e.badge
		FROM toc_entries e JOIN snapshots s ON s.id = e.snapshot_id
		WHERE ` + where + `
		ORDER BY s.created_at DESC, s.id DESC, e.position ASC
		LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		var badge string
		if err := rows.Scan(&h.Page, &h.SnapshotID, &h.Entry.Position, &h.Entry.Title, &badge); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		h.Entry.Badge = section.Badge(badge)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// PruneSnapshots deletes all but the newest keep snapshots of a page.
// Entries go with their snapshot through the foreign key cascade.
func PruneSnapshots(ctx context.Context, db *sql.DB, pageNorm string, keep int) (int, error) {
	result, err := db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE page_norm = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE page_norm = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
	`, pageNorm, pageNorm, keep)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// DeletePage removes every snapshot of a page.
func DeletePage(ctx context.Context, db *sql.DB, pageNorm string) (int, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM snapshots WHERE page_norm = ?`, pageNorm)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if n == 0 {
		return 0, errors.NewNotFound(pageNorm)
	}
	return int(n), nil
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var s Snapshot
	if err := row.Scan(&s.ID, &s.Page, &s.PageNorm, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadEntries(ctx context.Context, db *sql.DB, s *Snapshot) error {
	rows, err := db.QueryContext(ctx, `
		SELECT position, title, badge FROM toc_entries
		WHERE snapshot_id = ?
		ORDER BY position ASC
	`, s.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	s.Sections = []section.Summary{}
	for rows.Next() {
		var e section.Summary
		var badge string
		if err := rows.Scan(&e.Position, &e.Title, &badge); err != nil {
			return errors.NewInternal(err)
		}
		e.Badge = section.Badge(badge)
		s.Sections = append(s.Sections, e)
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so the term matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/chattoc/internal/db"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Page string // required

	// Path writes the export to a file when set. It must pass ValidatePath.
	Path string

	// ExportsDir is the directory Path must sit directly in.
	ExportsDir string

	// AllowUnsafePaths lifts the directory restriction (symlinks are still refused).
	AllowUnsafePaths bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Page       string `json:"page"`
	SnapshotID string `json:"snapshot_id"`
	Text       string `json:"text"`
	Count      int    `json:"count"`
	Path       string `json:"path,omitempty"`
	ExportedAt int64  `json:"exported_at"`
}

// Export flattens the latest snapshot of a page into "#<position> <badge> <title>"
// lines. A page whose latest snapshot is empty yields NOTHING_TO_EXPORT.
func Export(ctx context.Context, database *sql.DB, input ExportInput) (*ExportOutput, error) {
	pageNorm := section.Normalize(input.Page)
	if pageNorm == "" {
		return nil, errors.NewInvalidRequest("page is required")
	}

	snap, err := db.GetLatest(ctx, database, pageNorm)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewNothingToExport(input.Page)
		}
		return nil, err
	}

	text, err := section.FormatExport(snap.Page, snap.Sections)
	if err != nil {
		return nil, err
	}

	out := &ExportOutput{
		Page:       snap.Page,
		SnapshotID: snap.ID,
		Text:       text,
		Count:      len(snap.Sections),
		ExportedAt: time.Now().Unix(),
	}

	if input.Path != "" {
		if err := ValidatePath(input.Path, input.ExportsDir, input.AllowUnsafePaths); err != nil {
			return nil, err
		}
		if err := writeAtomic(input.Path, []byte(text+"\n")); err != nil {
			return nil, err
		}
		out.Path = input.Path
	}

	return out, nil
}

// DefaultExportPath returns <exportsDir>/<page>-<timestamp>.txt.
func DefaultExportPath(exportsDir, page string, now time.Time) string {
	name := SanitizeForFilename(section.Normalize(page))
	return filepath.Join(exportsDir, fmt.Sprintf("%s-%s.txt", name, now.Format("2006-01-02T150405")))
}

// writeAtomic writes data to a temp file next to path and renames it into place,
// so an existing file is preserved on failure.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

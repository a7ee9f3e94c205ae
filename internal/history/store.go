package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store keeps a local record of completed downloads in a SQLite file,
// backing the library listing.
type Store struct {
	db *sql.DB
}

// Entry is one completed download.
type Entry struct {
	ID           string
	BookID       string
	Title        string
	Format       string
	ArtifactPath string
	PageCount    int
	DownloadedAt time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database handle. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("applying pragma: %w", err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS downloads (
	id TEXT PRIMARY KEY,
	book_id TEXT NOT NULL,
	title TEXT NOT NULL,
	format TEXT NOT NULL,
	artifact_path TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	downloaded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_downloads_book_id ON downloads(book_id);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrating history schema: %w", err)
	}
	return nil
}

// Record stores one completed download and returns the entry with its
// generated ID and timestamp filled in.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	entry.ID = uuid.NewString()
	entry.DownloadedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO downloads (id, book_id, title, format, artifact_path, page_count, downloaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, entry.ID, entry.BookID, entry.Title, entry.Format, entry.ArtifactPath, entry.PageCount, entry.DownloadedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("recording download: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, newest first. limit <= 0 means
// everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `
SELECT id, book_id, title, format, artifact_path, page_count, downloaded_at
FROM downloads
ORDER BY downloaded_at DESC
`
	args := []any{}
	if limit > 0 {
		query += "LIMIT ?\n"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing downloads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.BookID, &e.Title, &e.Format, &e.ArtifactPath, &e.PageCount, &e.DownloadedAt); err != nil {
			return nil, fmt.Errorf("scanning download row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading download rows: %w", err)
	}
	return entries, nil
}

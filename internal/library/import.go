// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bookbrowser/pkg/types"
)

// CatalogFile is the YAML layout accepted by Import.
type CatalogFile struct {
	Books []types.Book `yaml:"books"`
}

// ImportSummary holds counts from one Import run.
type ImportSummary struct {
	Imported int
	Updated  int
	Removed  int
	Failed   int

	// Unchanged is true when the file was skipped because its modification
	// time matches the last import.
	Unchanged bool
}

// Total returns the number of books processed.
func (s ImportSummary) Total() int {
	return s.Imported + s.Updated + s.Failed
}

// Import loads the catalog file at path into the library. Books are keyed
// by ID and owned by the file that first imported them; a book whose id is
// owned by another file counts as failed. Books previously imported from
// the same file but no longer listed are removed. A file whose modification time is unchanged since the last
// import is skipped. Progress lines go to w.
func (s *Store) Import(ctx context.Context, path string, w io.Writer) (ImportSummary, error) {
	source, err := filepath.Abs(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("reading catalog file %s: %w", path, err)
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

	var storedModTime string
	err = s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM import_status WHERE source = ?`, source,
	).Scan(&storedModTime)
	if err == nil && storedModTime == modTime {
		fmt.Fprintf(w, "skipped %s (unchanged)\n", path)
		return ImportSummary{Unchanged: true}, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return ImportSummary{}, fmt.Errorf("checking import status: %w", err)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("reading catalog file %s: %w", path, err)
	}
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ImportSummary{}, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}

	summary, err := s.importBooks(ctx, source, modTime, file.Books, w)
	if err != nil {
		return ImportSummary{}, err
	}

	fmt.Fprintf(w, "\nimported: %d, updated: %d, removed: %d, failed: %d\n",
		summary.Imported, summary.Updated, summary.Removed, summary.Failed)
	return summary, nil
}

func (s *Store) importBooks(ctx context.Context, source, modTime string, books []types.Book, w io.Writer) (ImportSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := sourceBookIDs(ctx, tx, source)
	if err != nil {
		return ImportSummary{}, err
	}

	upsertBook, err := tx.PrepareContext(ctx,
		`INSERT INTO books (id, title, description, release_date, series_id, series_title, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, description=excluded.description,
			release_date=excluded.release_date, series_id=excluded.series_id,
			series_title=excluded.series_title`)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("preparing book upsert: %w", err)
	}
	defer upsertBook.Close()

	var summary ImportSummary
	seen := make(map[int64]bool, len(books))

	for _, b := range books {
		if err := validateBook(b); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", bookLabel(b), err)
			summary.Failed++
			continue
		}
		if seen[b.ID] {
			fmt.Fprintf(w, "failed  %s: duplicate id %d\n", bookLabel(b), b.ID)
			summary.Failed++
			continue
		}
		seen[b.ID] = true

		owner, err := bookSource(ctx, tx, b.ID)
		if err != nil {
			return ImportSummary{}, err
		}
		if owner != "" && owner != source {
			fmt.Fprintf(w, "failed  %s: id %d already imported from %s\n", bookLabel(b), b.ID, owner)
			summary.Failed++
			continue
		}

		if _, err := upsertBook.ExecContext(ctx,
			b.ID, strings.TrimSpace(b.Title), b.Description, b.ReleaseDate,
			b.SeriesID, b.SeriesTitle, source,
		); err != nil {
			return ImportSummary{}, fmt.Errorf("upserting book %d: %w", b.ID, err)
		}
		if err := replaceCreators(ctx, tx, b); err != nil {
			return ImportSummary{}, err
		}
		if err := replaceGenres(ctx, tx, b); err != nil {
			return ImportSummary{}, err
		}

		if owner != "" {
			fmt.Fprintf(w, "updated %s\n", bookLabel(b))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "imported %s\n", bookLabel(b))
			summary.Imported++
		}
	}

	for _, id := range existing {
		if seen[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
			return ImportSummary{}, fmt.Errorf("removing book %d: %w", id, err)
		}
		fmt.Fprintf(w, "removed %d\n", id)
		summary.Removed++
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		source, modTime,
	); err != nil {
		return ImportSummary{}, fmt.Errorf("updating import status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportSummary{}, fmt.Errorf("committing import: %w", err)
	}
	return summary, nil
}

// bookSource returns the catalog file a book was imported from, or "" if
// the id is not in the library.
func bookSource(ctx context.Context, tx *sql.Tx, id int64) (string, error) {
	var source string
	err := tx.QueryRowContext(ctx, `SELECT source FROM books WHERE id = ?`, id).Scan(&source)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up book %d: %w", id, err)
	}
	return source, nil
}

func sourceBookIDs(ctx context.Context, tx *sql.Tx, source string) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM books WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("listing books from %s: %w", source, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning book id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func replaceCreators(ctx context.Context, tx *sql.Tx, b types.Book) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM creators WHERE book_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clearing creators of book %d: %w", b.ID, err)
	}
	for i, c := range b.Creators {
		name := strings.TrimSpace(c.FullName)
		if name == "" {
			continue
		}
		personID, err := upsertNamed(ctx, tx, "persons", "full_name", name)
		if err != nil {
			return err
		}
		role := c.Role
		if role == "" {
			role = types.RoleAuthor
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO creators (book_id, person_id, role, position) VALUES (?, ?, ?, ?)`,
			b.ID, personID, string(role), i,
		); err != nil {
			return fmt.Errorf("inserting creator %q of book %d: %w", name, b.ID, err)
		}
	}
	return nil
}

func replaceGenres(ctx context.Context, tx *sql.Tx, b types.Book) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM book_genres WHERE book_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clearing genres of book %d: %w", b.ID, err)
	}
	for _, g := range b.Genres {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		genreID, err := upsertNamed(ctx, tx, "genres", "name", name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO book_genres (book_id, genre_id) VALUES (?, ?)`, b.ID, genreID,
		); err != nil {
			return fmt.Errorf("inserting genre %q of book %d: %w", name, b.ID, err)
		}
	}
	return nil
}

// upsertNamed returns the id of the row in table whose column equals value,
// inserting it first if needed. table and column are constants.
func upsertNamed(ctx context.Context, tx *sql.Tx, table, column, value string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s) VALUES (?)`, table, column), value,
	); err != nil {
		return 0, fmt.Errorf("inserting %s %q: %w", table, value, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE %s = ?`, table, column), value,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("looking up %s %q: %w", table, value, err)
	}
	return id, nil
}

func validateBook(b types.Book) error {
	if b.ID <= 0 {
		return fmt.Errorf("missing id")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("missing title")
	}
	return nil
}

func bookLabel(b types.Book) string {
	if b.Title == "" {
		return fmt.Sprintf("#%d", b.ID)
	}
	return fmt.Sprintf("#%d %q", b.ID, b.Title)
}

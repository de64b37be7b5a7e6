// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/bookbrowser/pkg/types"
)

// Name returns the backend identifier.
func (s *Store) Name() string { return "library" }

// Lookup is Search under the name the typeahead pipeline expects.
func (s *Store) Lookup(ctx context.Context, query string) ([]types.BookSummary, error) {
	return s.Search(ctx, query)
}

// Search returns books whose title, description, or creator full name
// contains query, ignoring case. Results are ordered by title and limited
// to the configured maximum. Like the catalog API, whitespace in query is
// matched literally.
func (s *Store) Search(ctx context.Context, query string) ([]types.BookSummary, error) {
	if query == "" {
		return nil, fmt.Errorf("empty library query")
	}
	pattern := "%" + escapeLike(query) + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT b.id, b.title, b.description
		FROM books b
		LEFT JOIN creators c ON c.book_id = b.id
		LEFT JOIN persons p ON p.id = c.person_id
		WHERE fold(b.title) LIKE fold(?) ESCAPE '\'
			OR fold(b.description) LIKE fold(?) ESCAPE '\'
			OR fold(coalesce(p.full_name, '')) LIKE fold(?) ESCAPE '\'
		ORDER BY b.title COLLATE NOCASE, b.id
		LIMIT ?`,
		pattern, pattern, pattern, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying library: %w", err)
	}
	defer rows.Close()

	results := []types.BookSummary{}
	index := make(map[int64]int)
	for rows.Next() {
		var b types.BookSummary
		if err := rows.Scan(&b.ID, &b.Title, &b.Description); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		b.Source = s.Name()
		b.Creators = []types.Creator{}
		index[b.ID] = len(results)
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	if err := s.attachCreators(ctx, results, index); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) attachCreators(ctx context.Context, results []types.BookSummary, index map[int64]int) error {
	if len(results) == 0 {
		return nil
	}
	placeholders := make([]string, len(results))
	args := make([]any, len(results))
	for i, r := range results {
		placeholders[i] = "?"
		args[i] = r.ID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.book_id, p.id, p.full_name, c.role
		FROM creators c
		JOIN persons p ON p.id = c.person_id
		WHERE c.book_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY c.book_id, c.position`, args...)
	if err != nil {
		return fmt.Errorf("querying creators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookID int64
			c      types.Creator
			role   string
		)
		if err := rows.Scan(&bookID, &c.ID, &c.FullName, &role); err != nil {
			return fmt.Errorf("scanning creator: %w", err)
		}
		c.Role = types.Role(role)
		i := index[bookID]
		results[i].Creators = append(results[i].Creators, c)
	}
	return rows.Err()
}

// escapeLike escapes the LIKE wildcards in s so it matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

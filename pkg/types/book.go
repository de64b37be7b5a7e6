// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the bookbrowser client:
// catalog entities returned by lookups and the configuration for each
// component.
package types

import "strings"

// Role identifies how a person contributed to a book.
type Role string

const (
	RoleAuthor      Role = "AUTHOR"
	RoleIllustrator Role = "ILLUSTRATOR"
	RoleEditor      Role = "EDITOR"
	RoleTranslator  Role = "TRANSLATOR"
)

// Creator is a person credited on a book.
type Creator struct {
	// ID is the catalog person ID. Zero for creators not yet persisted.
	ID int64 `json:"id,omitempty" yaml:"id,omitempty"`

	// FullName is the display name (e.g. "J. R. R. Tolkien").
	FullName string `json:"fullName" yaml:"full_name"`

	// Role is the contribution type. Empty means author.
	Role Role `json:"role,omitempty" yaml:"role,omitempty"`
}

// Genre is a catalog genre.
type Genre struct {
	ID   int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name" yaml:"name"`
}

// BookSummary is the result item of a book lookup. It carries enough to
// render a typeahead row; full book details live behind the catalog API.
type BookSummary struct {
	// ID is the book ID within its source.
	ID int64 `json:"id" yaml:"id"`

	// Title is the book title.
	Title string `json:"title" yaml:"title"`

	// Description is the free-text blurb, possibly empty.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Creators lists credited people in catalog order.
	Creators []Creator `json:"creators" yaml:"creators"`

	// Source names the backend that produced the result ("catalog",
	// "library", or a comma-joined list after merging).
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// AuthorsDescription joins creator names the way the search widget shows
// them: "First Last , Other Name".
func (b BookSummary) AuthorsDescription() string {
	names := make([]string, 0, len(b.Creators))
	for _, c := range b.Creators {
		if c.FullName == "" {
			continue
		}
		names = append(names, c.FullName)
	}
	return strings.Join(names, " , ")
}

// Book is the full catalog record as stored by the local library and
// returned by catalog listings.
type Book struct {
	ID          int64     `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	ReleaseDate string    `json:"releaseDate,omitempty" yaml:"release_date,omitempty"`
	SeriesID    int64     `json:"seriesId,omitempty" yaml:"series_id,omitempty"`
	SeriesTitle string    `json:"seriesTitle,omitempty" yaml:"series,omitempty"`
	Creators    []Creator `json:"creators" yaml:"creators"`
	Genres      []Genre   `json:"genres,omitempty" yaml:"genres,omitempty"`
}

// Summary reduces a Book to the lookup result shape.
func (b Book) Summary() BookSummary {
	return BookSummary{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Creators:    b.Creators,
	}
}

// Page is one page of a catalog listing.
type Page[E any] struct {
	Items      []E `json:"items" yaml:"items"`
	TotalPages int `json:"totalPages" yaml:"total_pages"`
}

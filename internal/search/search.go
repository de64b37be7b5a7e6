// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries every configured book source at once and returns
// one merged, deduplicated, ranked result list.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/bookbrowser/pkg/types"
)

// Backend searches a single book source. The remote catalog client and the
// offline library both implement it.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string) ([]types.BookSummary, error)
}

// Output holds the results and merge statistics of one search.
type Output struct {
	Results       []types.BookSummary `json:"results"`
	DupsRemoved   int                 `json:"dups_removed"`
	BackendErrors []string            `json:"backend_errors,omitempty"`
}

// Searcher fans a query out to its backends.
type Searcher struct {
	backends   []Backend
	maxResults int
	logger     *zap.Logger
}

// NewSearcher returns a Searcher over backends. maxResults <= 0 disables
// truncation. A nil logger disables logging.
func NewSearcher(backends []Backend, maxResults int, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		backends:   backends,
		maxResults: maxResults,
		logger:     logger.Named("search"),
	}
}

// Search queries all backends concurrently, deduplicates results, ranks
// them against query, and returns the top N. Backend failures are reported
// in Output.BackendErrors; if every backend fails the joined errors are
// returned. query is passed to the backends untrimmed.
func (s *Searcher) Search(ctx context.Context, query string) (Output, error) {
	if query == "" {
		return Output{}, fmt.Errorf("query is empty")
	}
	if len(s.backends) == 0 {
		return Output{}, fmt.Errorf("no search backends configured")
	}

	type backendResult struct {
		results []types.BookSummary
		err     error
	}

	// Results are kept in backend order so merging is deterministic.
	collected := make([]backendResult, len(s.backends))
	var wg sync.WaitGroup
	for i, b := range s.backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, query)
			collected[i] = backendResult{results: results, err: err}
		}(i, b)
	}
	wg.Wait()

	var (
		all           []types.BookSummary
		backendErrors []string
		errs          []error
	)
	for i, br := range collected {
		name := s.backends[i].Name()
		if br.err != nil {
			backendErrors = append(backendErrors, fmt.Sprintf("%s: %v", name, br.err))
			errs = append(errs, fmt.Errorf("backend %s: %w", name, br.err))
			s.logger.Warn("backend failed", zap.String("backend", name), zap.Error(br.err))
			continue
		}
		for _, r := range br.results {
			if r.Source == "" {
				r.Source = name
			}
			all = append(all, r)
		}
	}
	if len(errs) == len(s.backends) {
		return Output{BackendErrors: backendErrors}, errors.Join(errs...)
	}

	deduped, removed := deduplicate(all)
	rankResults(deduped, query)

	if s.maxResults > 0 && len(deduped) > s.maxResults {
		deduped = deduped[:s.maxResults]
	}
	if deduped == nil {
		deduped = []types.BookSummary{}
	}

	s.logger.Debug("search finished",
		zap.String("query", query),
		zap.Int("results", len(deduped)),
		zap.Int("dups_removed", removed),
		zap.Int("backend_errors", len(backendErrors)))

	return Output{
		Results:       deduped,
		DupsRemoved:   removed,
		BackendErrors: backendErrors,
	}, nil
}

// Lookup returns only the merged results, for use as a typeahead source.
func (s *Searcher) Lookup(ctx context.Context, query string) ([]types.BookSummary, error) {
	out, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// deduplicate merges results that share a normalized title and creator set.
func deduplicate(results []types.BookSummary) ([]types.BookSummary, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.BookSummary
	removed := 0

	for _, r := range results {
		key := dedupKey(r)
		if idx, ok := seen[key]; ok {
			mergeInto(&deduped[idx], r)
			removed++
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, r)
	}
	return deduped, removed
}

// dedupKey identifies a book across sources. IDs are per-source, so the key
// is built from content: the normalized title plus the sorted creator names.
func dedupKey(r types.BookSummary) string {
	names := make([]string, 0, len(r.Creators))
	for _, c := range r.Creators {
		if n := normalizeText(c.FullName); n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return normalizeText(r.Title) + "|" + strings.Join(names, ";")
}

// mergeInto fills empty fields of dst from src and records both sources.
func mergeInto(dst *types.BookSummary, src types.BookSummary) {
	if dst.Description == "" && src.Description != "" {
		dst.Description = src.Description
	}
	if len(dst.Creators) == 0 && len(src.Creators) > 0 {
		dst.Creators = src.Creators
	}
	for _, s := range strings.Split(src.Source, ",") {
		if s != "" && !containsSource(dst.Source, s) {
			if dst.Source == "" {
				dst.Source = s
			} else {
				dst.Source = dst.Source + "," + s
			}
		}
	}
}

func containsSource(list, name string) bool {
	for _, s := range strings.Split(list, ",") {
		if s == name {
			return true
		}
	}
	return false
}

// Match tiers, best first.
const (
	matchTitlePrefix = iota
	matchTitleWord
	matchTitleSubstring
	matchCreator
	matchDescription
	matchOther
)

// matchTier classifies how r matches the normalized query.
func matchTier(r types.BookSummary, q string) int {
	title := normalizeText(r.Title)
	switch {
	case q == "":
		return matchOther
	case strings.HasPrefix(title, q):
		return matchTitlePrefix
	case strings.Contains(" "+title, " "+q):
		return matchTitleWord
	case strings.Contains(title, q):
		return matchTitleSubstring
	}
	for _, c := range r.Creators {
		if strings.Contains(normalizeText(c.FullName), q) {
			return matchCreator
		}
	}
	if strings.Contains(normalizeText(r.Description), q) {
		return matchDescription
	}
	return matchOther
}

// rankResults orders results by match tier, then title.
func rankResults(results []types.BookSummary, query string) {
	q := normalizeText(query)
	type ranked struct {
		tier  int
		title string
		r     types.BookSummary
	}
	rs := make([]ranked, len(results))
	for i, r := range results {
		rs[i] = ranked{tier: matchTier(r, q), title: normalizeText(r.Title), r: r}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].tier != rs[j].tier {
			return rs[i].tier < rs[j].tier
		}
		return rs[i].title < rs[j].title
	})
	for i := range rs {
		results[i] = rs[i].r
	}
}

// normalizeText returns a lowercased, punctuation-stripped version of s
// with whitespace collapsed.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-30s  %s\n", "Rank", "Title", "Authors", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for i, r := range out.Results {
		fmt.Fprintf(w, "%-4d  %-50s  %-30s  %s\n",
			i+1, truncate(r.Title, 50), truncate(r.AuthorsDescription(), 30), r.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
	for _, e := range out.BackendErrors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

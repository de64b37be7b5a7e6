// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog talks to the BookBrowser REST API: free-text book search
// for the typeahead and the paged listings behind the homepage.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/bookbrowser/internal/httputil"
	"github.com/pdiddy/bookbrowser/pkg/types"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	defaultPageSize = 10
	dateLayout      = "2006-01-02"
)

// StatusError reports a catalog response with status >= 400.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("catalog %s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Client talks to the catalog HTTP API.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	userAgent  string
	token      string
	pageSize   int
	maxRetries int
	logger     *zap.Logger
}

// NewClient builds a Client from cfg. A nil logger disables logging.
func NewClient(cfg types.CatalogConfig, logger *zap.Logger) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = types.DefaultConfig().Catalog.UserAgent
	}
	return &Client{
		baseURL:    base,
		http:       &http.Client{Timeout: cfg.Timeout},
		userAgent:  userAgent,
		token:      strings.TrimSpace(cfg.APIToken),
		pageSize:   pageSize,
		maxRetries: cfg.MaxRetries,
		logger:     logger.Named("catalog"),
	}, nil
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "catalog" }

// Search returns up to the configured page size of books whose title,
// description, or creator name contains query. The query is sent as typed;
// whitespace is significant to the server's match.
func (c *Client) Search(ctx context.Context, query string) ([]types.BookSummary, error) {
	if query == "" {
		return nil, fmt.Errorf("empty catalog query")
	}
	values := url.Values{
		"query": {query},
		"page":  {"0"},
		"size":  {strconv.Itoa(c.pageSize)},
	}
	rel := &url.URL{Path: "/api/book/search", RawQuery: values.Encode()}

	var payload []types.BookSummary
	if err := c.doURL(ctx, rel, &payload); err != nil {
		return nil, err
	}
	for i := range payload {
		payload[i].Source = c.Name()
	}
	if payload == nil {
		payload = []types.BookSummary{}
	}
	return payload, nil
}

// Lookup is Search under the name the typeahead pipeline expects.
func (c *Client) Lookup(ctx context.Context, query string) ([]types.BookSummary, error) {
	return c.Search(ctx, query)
}

// Order is a listing sort direction.
type Order string

const (
	Ascending  Order = "ASC"
	Descending Order = "DESC"
)

// PageQuery configures /api/book listing requests. Zero values are omitted
// and the server defaults apply.
type PageQuery struct {
	Page  int
	Size  int
	Sort  string
	Order Order

	// StartReleaseDate and EndReleaseDate bound the release date, inclusive.
	StartReleaseDate time.Time
	EndReleaseDate   time.Time

	// TitleStartLetter restricts titles to those starting with one letter.
	TitleStartLetter string
}

func (q PageQuery) values() url.Values {
	values := url.Values{}
	values.Set("page", strconv.Itoa(max(q.Page, 0)))
	if q.Size > 0 {
		values.Set("size", strconv.Itoa(q.Size))
	}
	if sort := strings.TrimSpace(q.Sort); sort != "" {
		values.Set("sort", sort)
	}
	if q.Order != "" {
		values.Set("order", string(q.Order))
	}
	if !q.StartReleaseDate.IsZero() {
		values.Set("startReleaseDate", q.StartReleaseDate.Format(dateLayout))
	}
	if !q.EndReleaseDate.IsZero() {
		values.Set("endReleaseDate", q.EndReleaseDate.Format(dateLayout))
	}
	if letter := strings.ToUpper(strings.TrimSpace(q.TitleStartLetter)); letter != "" {
		values.Set("titleStartLetter", letter)
	}
	return values
}

// FindAll retrieves one page of the book listing.
func (c *Client) FindAll(ctx context.Context, query PageQuery) (types.Page[types.Book], error) {
	if query.TitleStartLetter != "" && !validLetter(query.TitleStartLetter) {
		return types.Page[types.Book]{}, fmt.Errorf("title start letter %q: want a single letter A-Z", query.TitleStartLetter)
	}
	rel := &url.URL{Path: "/api/book", RawQuery: query.values().Encode()}
	var payload types.Page[types.Book]
	if err := c.doURL(ctx, rel, &payload); err != nil {
		return types.Page[types.Book]{}, err
	}
	if payload.Items == nil {
		payload.Items = []types.Book{}
	}
	return payload, nil
}

// Recent lists the n most recently released books, newest first.
func (c *Client) Recent(ctx context.Context, n int, now time.Time) ([]types.Book, error) {
	page, err := c.FindAll(ctx, PageQuery{
		Size:           n,
		Sort:           "releaseDate",
		Order:          Descending,
		EndReleaseDate: now,
	})
	if err != nil {
		return nil, fmt.Errorf("listing recent books: %w", err)
	}
	return page.Items, nil
}

// Upcoming lists the next n books to be released, soonest first.
func (c *Client) Upcoming(ctx context.Context, n int, now time.Time) ([]types.Book, error) {
	page, err := c.FindAll(ctx, PageQuery{
		Size:             n,
		Sort:             "releaseDate",
		Order:            Ascending,
		StartReleaseDate: now,
	})
	if err != nil {
		return nil, fmt.Errorf("listing upcoming books: %w", err)
	}
	return page.Items, nil
}

func (c *Client) doURL(ctx context.Context, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries, c.logger)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("catalog request",
		zap.String("path", rel.Path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Path:       rel.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func validLetter(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 1 {
		return false
	}
	ch := s[0] &^ 0x20
	return ch >= 'A' && ch <= 'Z'
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse catalog base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse catalog base url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

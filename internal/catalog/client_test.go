// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bookbrowser/internal/httputil"
	"github.com/pdiddy/bookbrowser/internal/typeahead"
	"github.com/pdiddy/bookbrowser/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*types.CatalogConfig)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := types.DefaultConfig().Catalog
	cfg.BaseURL = server.URL
	cfg.Timeout = 2 * time.Second
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return c
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "localhost:8080", u.Host)

	u, err = parseBaseURL("catalog.example.com:9000/api?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "http://catalog.example.com:9000", u.String())

	_, err = parseBaseURL("http://")
	assert.Error(t, err)
}

func TestClient_SearchEncodesQueryAndTagsSource(t *testing.T) {
	var got url.Values
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 7, "title": "The Hobbit", "creators": [{"id": 1, "fullName": "J. R. R. Tolkien", "role": "AUTHOR"}]},
			{"id": 9, "title": "Hobbit Lore", "description": "about hobbits", "creators": []}
		]`))
	}, func(cfg *types.CatalogConfig) { cfg.PageSize = 5 })

	books, err := c.Search(context.Background(), "  hobbit & co ")
	require.NoError(t, err)

	assert.Equal(t, "/api/book/search", gotPath)
	assert.Equal(t, "  hobbit & co ", got.Get("query"), "query is sent as typed")
	assert.Equal(t, "0", got.Get("page"))
	assert.Equal(t, "5", got.Get("size"))

	require.Len(t, books, 2)
	assert.Equal(t, int64(7), books[0].ID)
	assert.Equal(t, "J. R. R. Tolkien", books[0].AuthorsDescription())
	assert.Equal(t, types.RoleAuthor, books[0].Creators[0].Role)
	for _, b := range books {
		assert.Equal(t, "catalog", b.Source)
	}
}

func TestClient_SearchEmptyResponseIsEmptySlice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	books, err := c.Lookup(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestClient_SearchRejectsEmptyQuery(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	_, err := c.Search(context.Background(), "")
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClient_SearchSendsWhitespaceQuery(t *testing.T) {
	var calls int32
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		got = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(`[{"id": 1, "title": "The Hobbit", "creators": []}]`))
	})

	books, err := c.Search(context.Background(), " ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, " ", got)
	require.Len(t, books, 1)
}

func TestClient_WhitespaceQueryThroughTypeahead(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`[{"id": 1, "title": "The Hobbit", "creators": []}]`))
	})

	p := typeahead.New[types.BookSummary](c, typeahead.Options{Debounce: 10 * time.Millisecond})
	queries := make(chan string, 1)
	sub := p.Subscribe(context.Background(), queries)
	defer sub.Close()

	queries <- " "
	close(queries)

	var states []typeahead.State[types.BookSummary]
	for s := range sub.States() {
		states = append(states, s)
	}
	require.Len(t, states, 2)
	assert.True(t, states[0].Searching)
	assert.False(t, states[1].Failed)
	require.Len(t, states[1].Results, 1)
	assert.Equal(t, "The Hobbit", states[1].Results[0].Title)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_SendsHeaders(t *testing.T) {
	var header http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		_, _ = w.Write([]byte(`[]`))
	}, func(cfg *types.CatalogConfig) {
		cfg.UserAgent = "bookbrowser-test/1.0"
		cfg.APIToken = "s3cret\n"
	})

	_, err := c.Search(context.Background(), "dune")
	require.NoError(t, err)

	assert.Equal(t, "application/json", header.Get("Accept"))
	assert.Equal(t, "bookbrowser-test/1.0", header.Get("User-Agent"))
	assert.Equal(t, "Bearer s3cret", header.Get("Authorization"))
	_, err = uuid.Parse(header.Get("X-Request-ID"))
	assert.NoError(t, err, "X-Request-ID must be a UUID")
}

func TestClient_OmitsAuthorizationWithoutToken(t *testing.T) {
	var auth string
	var present bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, present = r.Header["Authorization"]
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := c.Search(context.Background(), "dune")
	require.NoError(t, err)
	assert.False(t, present)
	assert.Empty(t, auth)
}

func TestClient_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "book index unavailable", http.StatusInternalServerError)
	})
	_, err := c.Search(context.Background(), "dune")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "/api/book/search", se.Path)
	assert.Equal(t, "book index unavailable", se.Body)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_RetriesThrottledRequests(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id": 1, "title": "Dune"}]`))
	})
	books, err := c.Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_CancelledContextAborts(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Search(ctx, "dune")
		errc <- err
	}()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("search did not return after cancel")
	}
}

func TestClient_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	_, err := c.Search(context.Background(), "dune")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_FindAllEncodesPageQuery(t *testing.T) {
	var got url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/book", r.URL.Path)
		got = r.URL.Query()
		_ = json.NewEncoder(w).Encode(types.Page[types.Book]{
			Items:      []types.Book{{ID: 3, Title: "Anathem", ReleaseDate: "2008-09-09"}},
			TotalPages: 4,
		})
	})

	page, err := c.FindAll(context.Background(), PageQuery{
		Page:             2,
		Size:             25,
		Sort:             "title",
		Order:            Ascending,
		StartReleaseDate: time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC),
		EndReleaseDate:   time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC),
		TitleStartLetter: "a",
	})
	require.NoError(t, err)

	assert.Equal(t, "2", got.Get("page"))
	assert.Equal(t, "25", got.Get("size"))
	assert.Equal(t, "title", got.Get("sort"))
	assert.Equal(t, "ASC", got.Get("order"))
	assert.Equal(t, "2000-01-02", got.Get("startReleaseDate"))
	assert.Equal(t, "2010-12-31", got.Get("endReleaseDate"))
	assert.Equal(t, "A", got.Get("titleStartLetter"))

	assert.Equal(t, 4, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Anathem", page.Items[0].Title)
}

func TestClient_FindAllOmitsZeroFilters(t *testing.T) {
	var got url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"items": null, "totalPages": 0}`))
	})
	page, err := c.FindAll(context.Background(), PageQuery{})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Equal(t, url.Values{"page": {"0"}}, got)
}

func TestClient_FindAllRejectsBadLetter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})
	for _, letter := range []string{"ab", "1", "é"} {
		_, err := c.FindAll(context.Background(), PageQuery{TitleStartLetter: letter})
		assert.Error(t, err, letter)
	}
}

func TestClient_RecentAndUpcoming(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	var queries []url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		_, _ = w.Write([]byte(`{"items": [{"id": 1, "title": "X"}], "totalPages": 1}`))
	})

	recent, err := c.Recent(context.Background(), 6, now)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	upcoming, err := c.Upcoming(context.Background(), 3, now)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)

	require.Len(t, queries, 2)
	assert.Equal(t, "DESC", queries[0].Get("order"))
	assert.Equal(t, "2026-03-14", queries[0].Get("endReleaseDate"))
	assert.Empty(t, queries[0].Get("startReleaseDate"))
	assert.Equal(t, "6", queries[0].Get("size"))

	assert.Equal(t, "ASC", queries[1].Get("order"))
	assert.Equal(t, "2026-03-14", queries[1].Get("startReleaseDate"))
	assert.Empty(t, queries[1].Get("endReleaseDate"))
	assert.Equal(t, "releaseDate", queries[1].Get("sort"))
}

func TestClient_RecentWrapsErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.Recent(context.Background(), 5, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing recent books")

	var se *StatusError
	assert.ErrorAs(t, err, &se)
}

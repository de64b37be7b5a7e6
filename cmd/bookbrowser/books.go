// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookbrowser/internal/catalog"
	"github.com/pdiddy/bookbrowser/pkg/types"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List books from the catalog API",
	Long: `Books lists catalog books the way the BookBrowser homepage does: the most
recently released titles and the ones coming soon.`,
}

var booksRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently released books",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBooksListing(cmd, (*catalog.Client).Recent)
	},
}

var booksUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List books to be released soon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBooksListing(cmd, (*catalog.Client).Upcoming)
	},
}

type listingFunc func(c *catalog.Client, ctx context.Context, n int, now time.Time) ([]types.Book, error)

func runBooksListing(cmd *cobra.Command, list listingFunc) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	client, err := catalog.NewClient(appConfig.Catalog, logger)
	if err != nil {
		return err
	}
	books, err := list(client, cmd.Context(), limit, time.Now())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(books)
	}
	formatBooks(books, cmd.OutOrStdout())
	return nil
}

func formatBooks(books []types.Book, w io.Writer) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}

	fmt.Fprintf(w, "%-6s  %-10s  %-45s  %s\n", "ID", "Released", "Title", "Authors")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, b := range books {
		title := b.Title
		if b.SeriesTitle != "" {
			title = fmt.Sprintf("%s (%s)", title, b.SeriesTitle)
		}
		fmt.Fprintf(w, "%-6d  %-10s  %-45s  %s\n",
			b.ID, b.ReleaseDate, truncate(title, 45), b.Summary().AuthorsDescription())
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func init() {
	for _, c := range []*cobra.Command{booksRecentCmd, booksUpcomingCmd} {
		c.Flags().Int("limit", 6, "number of books to list")
		c.Flags().Bool("json", false, "output books as JSON")
		booksCmd.AddCommand(c)
	}
	rootCmd.AddCommand(booksCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookbrowser/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Look books up once by title, author, or description",
	Long: `Search runs one lookup against the catalog API and the offline library,
merges duplicates, and ranks title matches above author and description
matches. Use --offline or --remote to restrict the sources.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("query is empty")
	}

	maxResults, _ := cmd.Flags().GetInt("max-results")
	if maxResults <= 0 {
		maxResults = appConfig.Library.MaxResults
	}

	backends, release, err := openBackends(cmd, appConfig)
	if err != nil {
		return err
	}
	defer release()

	out, err := search.NewSearcher(backends, maxResults, logger).Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return search.FormatJSON(out, cmd.OutOrStdout())
	}
	search.FormatTable(out, cmd.OutOrStdout())
	return nil
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (default library.max_results)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	addSourceFlags(searchCmd)

	rootCmd.AddCommand(searchCmd)
}

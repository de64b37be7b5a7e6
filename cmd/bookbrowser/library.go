// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookbrowser/internal/library"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the offline library",
	Long: `Library manages the local SQLite copy of the catalog that search and
typeahead use when the catalog API is unreachable or --offline is given.`,
}

var libraryImportCmd = &cobra.Command{
	Use:   "import <catalog.yaml>...",
	Short: "Import books from YAML catalog files",
	Long: `Import reads YAML catalog files (a top-level "books" list) into the
offline library. Books are keyed by id; books dropped from a file are
removed from the library. Files unchanged since their last import are
skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLibraryImport,
}

func runLibraryImport(cmd *cobra.Command, args []string) error {
	store, err := library.Open(appConfig.Library)
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, path := range args {
		summary, err := store.Import(cmd.Context(), path, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		failed += summary.Failed
	}
	if failed > 0 {
		return fmt.Errorf("%d book(s) failed to import", failed)
	}
	return nil
}

var libraryCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of books in the offline library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := library.Open(appConfig.Library)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d books in %s\n", n, appConfig.Library.Path)
		return nil
	},
}

func init() {
	libraryCmd.AddCommand(libraryImportCmd)
	libraryCmd.AddCommand(libraryCountCmd)
	rootCmd.AddCommand(libraryCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookbrowser/internal/search"
	"github.com/pdiddy/bookbrowser/internal/tui"
	"github.com/pdiddy/bookbrowser/internal/typeahead"
	"github.com/pdiddy/bookbrowser/pkg/types"
)

var typeaheadCmd = &cobra.Command{
	Use:   "typeahead",
	Short: "Search books interactively as you type",
	Long: `Typeahead opens a search box that looks books up as you type. A lookup
starts once typing pauses for the debounce interval (default 300ms); a new
lookup supersedes any one still running, and repeated queries are not sent
again. Press enter to pick a result.

With --stdin, each line of standard input is replayed as one keystroke
event and every search state is printed as a JSON line.`,
	Args: cobra.NoArgs,
	RunE: runTypeahead,
}

func runTypeahead(cmd *cobra.Command, args []string) error {
	debounce, _ := cmd.Flags().GetDuration("debounce")
	if debounce <= 0 {
		debounce = appConfig.Typeahead.Debounce
	}

	backends, release, err := openBackends(cmd, appConfig)
	if err != nil {
		return err
	}
	defer release()

	searcher := search.NewSearcher(backends, appConfig.Typeahead.MaxResults, logger)
	pipeline := typeahead.New[types.BookSummary](searcher, typeahead.Options{
		Debounce: debounce,
		Logger:   logger.Named("typeahead"),
	})

	replay, _ := cmd.Flags().GetBool("stdin")
	if replay {
		interval, _ := cmd.Flags().GetDuration("interval")
		return typeahead.Replay(cmd.Context(), pipeline, os.Stdin, os.Stdout, interval)
	}

	chosen, ok, err := tui.Run(cmd.Context(), pipeline, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	if ok {
		fmt.Printf("%s\n", chosen.Title)
		if authors := chosen.AuthorsDescription(); authors != "" {
			fmt.Printf("  by %s\n", authors)
		}
		fmt.Printf("  id %d (%s)\n", chosen.ID, chosen.Source)
	}
	return nil
}

func init() {
	typeaheadCmd.Flags().Bool("stdin", false, "replay stdin lines as query events and print states as JSON lines")
	typeaheadCmd.Flags().Duration("interval", 0, "pause between replayed lines (with --stdin)")
	typeaheadCmd.Flags().Duration("debounce", 0, "quiet interval before a lookup (default typeahead.debounce)")
	addSourceFlags(typeaheadCmd)

	rootCmd.AddCommand(typeaheadCmd)
}

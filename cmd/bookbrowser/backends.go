// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/bookbrowser/internal/catalog"
	"github.com/pdiddy/bookbrowser/internal/library"
	"github.com/pdiddy/bookbrowser/internal/search"
	"github.com/pdiddy/bookbrowser/pkg/types"
)

// addSourceFlags registers --offline and --remote on cmd.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("offline", false, "search only the offline library")
	cmd.Flags().Bool("remote", false, "search only the catalog API")
}

// openBackends returns the search backends selected by --offline/--remote.
// Without either flag the catalog is always used and the library is added
// when its database exists. The returned func releases the backends.
func openBackends(cmd *cobra.Command, cfg types.Config) ([]search.Backend, func(), error) {
	offline, _ := cmd.Flags().GetBool("offline")
	remote, _ := cmd.Flags().GetBool("remote")
	if offline && remote {
		return nil, nil, fmt.Errorf("--offline and --remote are mutually exclusive")
	}

	var backends []search.Backend
	closers := []func(){}
	release := func() {
		for _, c := range closers {
			c()
		}
	}

	if !offline {
		client, err := catalog.NewClient(cfg.Catalog, logger)
		if err != nil {
			return nil, nil, err
		}
		backends = append(backends, client)
	}

	if !remote {
		_, statErr := os.Stat(cfg.Library.Path)
		if offline || statErr == nil {
			store, err := library.Open(cfg.Library)
			if err != nil {
				return nil, nil, err
			}
			closers = append(closers, func() { store.Close() })
			backends = append(backends, store)
		} else if !errors.Is(statErr, os.ErrNotExist) {
			logger.Warn("library unavailable", zap.String("path", cfg.Library.Path), zap.Error(statErr))
		}
	}

	logger.Debug("backends selected", zap.Int("count", len(backends)))
	return backends, release, nil
}

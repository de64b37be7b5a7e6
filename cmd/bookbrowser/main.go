// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bookbrowser CLI: an incremental
// book search widget over the BookBrowser catalog API and an offline
// SQLite library.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/bookbrowser/internal/logging"
	"github.com/pdiddy/bookbrowser/internal/secrets"
	"github.com/pdiddy/bookbrowser/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// appConfig is the merged configuration: defaults, config file,
	// environment, then secrets.
	appConfig types.Config

	// logger is built from appConfig.Log in PersistentPreRunE.
	logger = zap.NewNop()
)

// rootCmd is the base command for the bookbrowser CLI.
var rootCmd = &cobra.Command{
	Use:   "bookbrowser",
	Short: "Search the BookBrowser catalog as you type",
	Long: `bookbrowser searches the BookBrowser catalog. The typeahead command opens
an incremental search widget that looks books up as you type; search runs a
single lookup. Results come from the catalog API, from the offline library,
or from both merged.

Configuration is read from bookbrowser.yaml in the current directory or
~/.config/bookbrowser/, from BOOKBROWSER_* environment variables, and from
.secrets/ (catalog-api-token).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		secrets.Apply(&cfg, s)
		if len(s) > 0 {
			logger.Info("loaded secrets", zap.Int("count", len(s)))
		}

		appConfig = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bookbrowser.yaml or ~/.config/bookbrowser/bookbrowser.yaml)")
	rootCmd.PersistentFlags().String("catalog-url", "", "catalog API base URL (overrides catalog.base_url)")
	rootCmd.PersistentFlags().String("library-path", "", "offline library database (overrides library.path)")
	rootCmd.PersistentFlags().String("log-file", "", "write JSON logs to this file (overrides log.file)")

	viper.BindPFlag("catalog.base_url", rootCmd.PersistentFlags().Lookup("catalog-url"))
	viper.BindPFlag("library.path", rootCmd.PersistentFlags().Lookup("library-path"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bookbrowser")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bookbrowser"))
		}
	}

	viper.SetEnvPrefix("BOOKBROWSER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig merges v over DefaultConfig.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	setDefaults(v, cfg)
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables are picked up
// by Unmarshal even when the config file omits them.
func setDefaults(v *viper.Viper, cfg types.Config) {
	v.SetDefault("catalog.base_url", cfg.Catalog.BaseURL)
	v.SetDefault("catalog.timeout", cfg.Catalog.Timeout)
	v.SetDefault("catalog.user_agent", cfg.Catalog.UserAgent)
	v.SetDefault("catalog.max_retries", cfg.Catalog.MaxRetries)
	v.SetDefault("catalog.page_size", cfg.Catalog.PageSize)
	v.SetDefault("catalog.api_token", cfg.Catalog.APIToken)
	v.SetDefault("library.path", cfg.Library.Path)
	v.SetDefault("library.max_results", cfg.Library.MaxResults)
	v.SetDefault("typeahead.debounce", cfg.Typeahead.Debounce)
	v.SetDefault("typeahead.max_results", cfg.Typeahead.MaxResults)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.level", cfg.Log.Level)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

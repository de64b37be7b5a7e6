// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bookbrowser/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429/503. Zero means the default
	// (3); a negative value disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// CatalogConfig holds settings for the remote BookBrowser catalog API.
type CatalogConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the catalog server root, e.g. "http://localhost:8080".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// PageSize is the number of results requested per lookup (default 10).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// APIToken is sent as a bearer token when set. Usually loaded from
	// .secrets/catalog-api-token rather than the config file.
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty" mapstructure:"api_token"`
}

// LibraryConfig holds settings for the offline SQLite library.
type LibraryConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// TypeaheadConfig holds settings for the incremental search widget.
type TypeaheadConfig struct {
	// Debounce is the quiet interval before a query is looked up (default 300ms).
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`

	// MaxResults caps the merged result list (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LogConfig controls the structured log sink.
type LogConfig struct {
	// File receives JSON log lines. Empty disables logging.
	File string `json:"file" yaml:"file" mapstructure:"file"`

	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// Config groups all component configurations.
type Config struct {
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	Library   LibraryConfig   `json:"library" yaml:"library" mapstructure:"library"`
	Typeahead TypeaheadConfig `json:"typeahead" yaml:"typeahead" mapstructure:"typeahead"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		Catalog: CatalogConfig{
			HTTPConfig: HTTPConfig{
				Timeout:    10 * time.Second,
				UserAgent:  "bookbrowser/0.1",
				MaxRetries: 3,
			},
			BaseURL:  "http://localhost:8080",
			PageSize: 10,
		},
		Library: LibraryConfig{
			Path:       "library/bookbrowser.db",
			MaxResults: 20,
		},
		Typeahead: TypeaheadConfig{
			Debounce:   300 * time.Millisecond,
			MaxResults: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

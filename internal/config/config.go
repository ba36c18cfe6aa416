// Package config loads the preview server's configuration from the
// environment and the site description from a YAML or TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// ErrInvalidConcurrency is returned when STITCH_CONCURRENCY is below 1.
var ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

// Config is the preview server's process configuration.
type Config struct {
	// Addr is the address the HTTP server listens on.
	Addr string `env:"STITCH_ADDR" envDefault:":8080"`

	// DatabasePath is the SQLite database holding pages and modules.
	DatabasePath string `env:"STITCH_DB_PATH" envDefault:"stitch.sqlite3"`

	// TemplateDir is the directory module templates are read from.
	TemplateDir string `env:"STITCH_TEMPLATE_DIR" envDefault:"templates"`

	// TemplatePattern turns a module's intended template into a path
	// within TemplateDir.
	TemplatePattern string `env:"STITCH_TEMPLATE_PATTERN" envDefault:"modules/%s.html.tmpl"`

	// Snippets are glob patterns, relative to TemplateDir, of templates
	// parsed alongside every module template.
	Snippets []string `env:"STITCH_SNIPPETS" envSeparator:","`

	// FallbackTemplate, when set, is used for modules whose template
	// doesn't exist. When empty, such modules fail the render.
	FallbackTemplate string `env:"STITCH_FALLBACK_TEMPLATE"`

	// SiteFile is the YAML or TOML file describing the site.
	SiteFile string `env:"STITCH_SITE_FILE" envDefault:"site.yaml"`

	// Concurrency is how many modules are rendered at once.
	Concurrency int `env:"STITCH_CONCURRENCY" envDefault:"1"`

	// TemplateCacheSize bounds the number of parsed templates kept in
	// memory. Zero keeps every template.
	TemplateCacheSize int64 `env:"STITCH_TEMPLATE_CACHE_SIZE" envDefault:"0"`

	LogLevel slog.Level `env:"STITCH_LOG_LEVEL" envDefault:"INFO"`

	// OTELEndpoint is the OTLP/HTTP endpoint traces are exported to.
	// Tracing is disabled when it's empty.
	OTELEndpoint string `env:"STITCH_OTEL_ENDPOINT"`
	OTELEnabled  bool   `env:"STITCH_OTEL_ENABLED" envDefault:"true"`
}

// Load reads the Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Concurrency < 1 {
		return cfg, fmt.Errorf("STITCH_CONCURRENCY=%d: %w", cfg.Concurrency, ErrInvalidConcurrency)
	}
	if cfg.TemplateCacheSize < 0 {
		return cfg, fmt.Errorf("STITCH_TEMPLATE_CACHE_SIZE=%d: must not be negative", cfg.TemplateCacheSize)
	}
	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedSiteFile is returned when the site file isn't YAML or TOML.
var ErrUnsupportedSiteFile = errors.New("site file must be .yaml, .yml, or .toml")

// SiteInfo describes the site. Templates reach it through .Site.
type SiteInfo struct {
	Title    string `yaml:"title" toml:"title"`
	URL      string `yaml:"url" toml:"url"`
	Language string `yaml:"language" toml:"language"`

	// Data holds anything else the templates need.
	Data map[string]any `yaml:"data" toml:"data"`
}

// LoadSite reads the site description at path, choosing the format by the
// file's extension.
func LoadSite(path string) (SiteInfo, error) {
	var info SiteInfo
	content, err := os.ReadFile(path)
	if err != nil {
		return info, fmt.Errorf("failed to read site file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &info)
	case ".toml":
		err = toml.Unmarshal(content, &info)
	default:
		return info, fmt.Errorf("failed to load site file %s: %w", path, ErrUnsupportedSiteFile)
	}
	if err != nil {
		return info, fmt.Errorf("failed to parse site file %s: %w", path, err)
	}
	return info, nil
}

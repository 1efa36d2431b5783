/*
Package config loads and merges the installer's on-disk configuration:
prefix/cellar/caskroom directory layout, the cask stanza destination
table, and the formula/cask definitions describing what to install.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// CoreConfig holds the filesystem layout the installer places artifacts
// into, and the fixed stanza-kind destination table.
type CoreConfig struct {
	Prefix          string `yaml:"prefix,omitempty"`
	Cellar          string `yaml:"cellar,omitempty"`
	Caskroom        string `yaml:"caskroom,omitempty"`
	BinDir          string `yaml:"bin_dir,omitempty"`
	LibDir          string `yaml:"lib_dir,omitempty"`
	IncludeDir      string `yaml:"include_dir,omitempty"`
	ManDir          string `yaml:"man_dir,omitempty"`
	ApplicationsDir string `yaml:"applications_dir,omitempty"`
	FontsDir        string `yaml:"fonts_dir,omitempty"`
	ServicesDir     string `yaml:"services_dir,omitempty"`
	ScreenSaversDir string `yaml:"screen_savers_dir,omitempty"`
	DictionariesDir string `yaml:"dictionaries_dir,omitempty"`
	ColorPickersDir string `yaml:"color_pickers_dir,omitempty"`

	// QuarantineAgent is stamped into every com.apple.quarantine value
	// this installer writes.
	QuarantineAgent string `yaml:"quarantine_agent,omitempty"`

	// Includes names other config documents to merge in.
	Includes []string `yaml:"includes,omitempty"`
}

// StanzaDestination returns the configured directory a cask stanza kind
// should be placed into.
func (c *CoreConfig) StanzaDestination(stanzaKind string) string {
	switch stanzaKind {
	case "app", "suite":
		return c.ApplicationsDir
	case "font":
		return c.FontsDir
	case "service":
		return c.ServicesDir
	case "screen_saver":
		return c.ScreenSaversDir
	case "dictionary":
		return c.DictionariesDir
	case "colorpicker":
		return c.ColorPickersDir
	default:
		return ""
	}
}

// Default returns a CoreConfig populated with the conventional macOS
// Homebrew-style locations, rooted at prefix.
func Default(prefix string) *CoreConfig {
	home, _ := os.UserHomeDir()
	return &CoreConfig{
		Prefix:          prefix,
		Cellar:          filepath.Join(prefix, "Cellar"),
		Caskroom:        filepath.Join(prefix, "Caskroom"),
		BinDir:          filepath.Join(prefix, "bin"),
		LibDir:          filepath.Join(prefix, "lib"),
		IncludeDir:      filepath.Join(prefix, "include"),
		ManDir:          filepath.Join(prefix, "share", "man"),
		ApplicationsDir: "/Applications",
		FontsDir:        filepath.Join(home, "Library", "Fonts"),
		ServicesDir:     filepath.Join(home, "Library", "Services"),
		ScreenSaversDir: filepath.Join(home, "Library", "Screen Savers"),
		DictionariesDir: filepath.Join(home, "Library", "Dictionaries"),
		ColorPickersDir: filepath.Join(home, "Library", "ColorPickers"),
		QuarantineAgent: "sps",
	}
}

// Load reads a YAML config file, applying environment-variable
// expansion before unmarshalling, then recursively merges in every
// document named by Includes (glob-resolved) using mergo.WithAppendSlice:
// an included document fills only the fields the loaded document leaves
// empty, and its slices are appended.
func Load(path string) (*CoreConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(raw))

	var cfg CoreConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	for _, pattern := range cfg.Includes {
		matches, err := filepath.Glob(filepath.Join(baseDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("resolving include pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			included, err := Load(m)
			if err != nil {
				return nil, fmt.Errorf("loading include %s: %w", m, err)
			}
			if err := mergo.Merge(&cfg, included, mergo.WithAppendSlice); err != nil {
				return nil, fmt.Errorf("merging include %s: %w", m, err)
			}
		}
	}

	return &cfg, nil
}

// Validate checks that the config has the fields the installer needs
// to place artifacts anywhere at all.
func (c *CoreConfig) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("config: prefix is required")
	}
	if c.Cellar == "" {
		return fmt.Errorf("config: cellar is required")
	}
	if c.Caskroom == "" {
		return fmt.Errorf("config: caskroom is required")
	}
	return nil
}

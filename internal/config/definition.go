package config

// FormulaDefinition is the subset of a formula's metadata the installer
// needs: what to extract, where its build-time placeholders point, and
// which files to link into the shared prefix.
type FormulaDefinition struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// PrefixPlaceholder/CellarPlaceholder are the build-time sentinel
	// tokens baked into the bottle's Mach-O load commands, to be
	// rewritten to this machine's real prefix/cellar.
	PrefixPlaceholder string `yaml:"prefix_placeholder"`
	CellarPlaceholder string `yaml:"cellar_placeholder"`

	// LinkBin/LinkLib/LinkInclude/LinkMan list cellar-relative paths to
	// symlink into the shared prefix directories.
	LinkBin     []string `yaml:"link_bin,omitempty"`
	LinkLib     []string `yaml:"link_lib,omitempty"`
	LinkInclude []string `yaml:"link_include,omitempty"`
	LinkMan     []string `yaml:"link_man,omitempty"`

	SourceURL string `yaml:"source_url,omitempty"`
}

// CaskDefinition is the subset of a cask's metadata the installer
// needs: its token, version, and the ordered artifact stanzas to place.
type CaskDefinition struct {
	Token     string   `yaml:"token"`
	Version   string   `yaml:"version"`
	Artifacts []Stanza `yaml:"artifacts"`
}

// Stanza is one artifact declaration: a kind (app, font, service,
// screen_saver, dictionary, colorpicker, suite) and the stage-relative
// names it moves.
type Stanza struct {
	Kind  string   `yaml:"kind"`
	Names []string `yaml:"names"`
}

// IsAppBearing reports whether this stanza kind should be placed before
// auxiliary stanzas.
func (s Stanza) IsAppBearing() bool {
	return s.Kind == "app" || s.Kind == "suite"
}

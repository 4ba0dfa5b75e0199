// Package manifest handles cflat.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/cflat/interp"
)

// Manifest represents a cflat.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Limits  Limits  `toml:"limits"`

	// Dir is the directory containing the cflat.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures script file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Limits bounds the interpreter's fixed-size arenas. Zero values fall back
// to the interpreter defaults.
type Limits struct {
	StackSize       int `toml:"stack-size"`
	LiteralPoolSize int `toml:"literal-pool-size"`
}

// Load parses a cflat.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "cflat.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir = dir

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks the manifest for usable values.
func (m *Manifest) Validate() error {
	if m.Project.Name == "" {
		return fmt.Errorf("project.name is required")
	}
	if m.Limits.StackSize < 0 {
		return fmt.Errorf("limits.stack-size must not be negative")
	}
	if m.Limits.LiteralPoolSize < 0 {
		return fmt.Errorf("limits.literal-pool-size must not be negative")
	}
	return nil
}

// Config maps the manifest limits onto an interpreter configuration;
// unset limits keep the interpreter defaults.
func (m *Manifest) Config() interp.Config {
	config := interp.DefaultConfig()
	if m.Limits.StackSize > 0 {
		config.StackCapacity = m.Limits.StackSize
	}
	if m.Limits.LiteralPoolSize > 0 {
		config.LiteralPoolCapacity = m.Limits.LiteralPoolSize
	}
	return config
}

// NewEnvironment creates an Environment configured by the manifest.
func (m *Manifest) NewEnvironment() *interp.Environment {
	return interp.NewEnvironmentWithConfig(m.Config())
}

// EntryPath returns the absolute path of the entry script, or "" when the
// manifest does not name one.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Source.Entry)
}

// SourcePaths returns the absolute paths of the configured source dirs.
func (m *Manifest) SourcePaths() []string {
	paths := make([]string, 0, len(m.Source.Dirs))
	for _, dir := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, dir))
	}
	return paths
}

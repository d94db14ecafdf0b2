// Package catalog loads the resource catalog: which named configurations
// exist, where their files live, where the shared ledger is, and the
// store-wide policy knobs.
//
// The catalog is a YAML file; a handful of settings can be overridden from
// the environment (TABSHARE_* variables).
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownResource reports a name the catalog does not list.
var ErrUnknownResource = errors.New("unknown resource")

// Duration wraps time.Duration so YAML accepts "2h" style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// AsDuration returns the wrapped value.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// MissingFileStrategy decides what a read does when a resource's backing
// file is unreachable.
type MissingFileStrategy string

const (
	// FailFast surfaces the missing file as an error.
	FailFast MissingFileStrategy = "fail"
	// SynthesizeEmpty serves an empty table using the catalog entry's
	// declared columns. Only useful for resources that declare them.
	SynthesizeEmpty MissingFileStrategy = "synthesize"
)

// Resource is one named configuration.
type Resource struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	// Columns optionally declares the schema, used only when synthesizing an
	// empty table for a missing file. Never overrides the file's own header.
	Columns []string `yaml:"columns,omitempty"`
}

// Archive configures the optional git archive of the data directory.
type Archive struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"`
}

// Catalog is the full runtime configuration.
type Catalog struct {
	Resources []Resource `yaml:"resources"`
	Ledger    string     `yaml:"ledger"`
	Archive   Archive    `yaml:"archive,omitempty"`

	// MissingFile defaults to FailFast.
	MissingFile MissingFileStrategy `yaml:"missing_file,omitempty"`

	// StaleLockAfter is how old a lock sentinel must be before lock-status
	// flags it as possibly stale. Zero uses the coordinator default.
	StaleLockAfter Duration `yaml:"stale_lock_after,omitempty"`

	// SystemFields are column names excluded from EDIT change summaries.
	SystemFields []string `yaml:"system_fields,omitempty"`
}

// Load reads and validates a catalog file. Relative resource and ledger
// paths are resolved against baseDir, or against the catalog file's own
// directory when baseDir is empty.
func Load(path, baseDir string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if baseDir == "" {
		baseDir = filepath.Dir(path)
	}
	if err := c.finish(baseDir); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return &c, nil
}

func (c *Catalog) finish(baseDir string) error {
	if len(c.Resources) == 0 {
		return errors.New("no resources declared")
	}
	seen := make(map[string]bool, len(c.Resources))
	for i := range c.Resources {
		r := &c.Resources[i]
		if r.Name == "" {
			return fmt.Errorf("resource %d: name is required", i)
		}
		if r.Path == "" {
			return fmt.Errorf("resource %q: path is required", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("resource %q declared twice", r.Name)
		}
		seen[r.Name] = true
		if !filepath.IsAbs(r.Path) {
			r.Path = filepath.Join(baseDir, r.Path)
		}
	}
	if c.Ledger == "" {
		return errors.New("ledger path is required")
	}
	if !filepath.IsAbs(c.Ledger) {
		c.Ledger = filepath.Join(baseDir, c.Ledger)
	}
	switch c.MissingFile {
	case "":
		c.MissingFile = FailFast
	case FailFast, SynthesizeEmpty:
	default:
		return fmt.Errorf("missing_file must be %q or %q, got %q", FailFast, SynthesizeEmpty, c.MissingFile)
	}
	if c.Archive.Enabled {
		if c.Archive.Dir == "" {
			c.Archive.Dir = baseDir
		} else if !filepath.IsAbs(c.Archive.Dir) {
			c.Archive.Dir = filepath.Join(baseDir, c.Archive.Dir)
		}
	}
	return nil
}

// Lookup resolves a resource by name.
func (c *Catalog) Lookup(name string) (Resource, error) {
	for _, r := range c.Resources {
		if r.Name == name {
			return r, nil
		}
	}
	return Resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, name)
}

// Names returns the declared resource names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Resources))
	for i, r := range c.Resources {
		names[i] = r.Name
	}
	return names
}

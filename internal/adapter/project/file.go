// Package project loads the optional project file that overrides which
// tables are registered, profiled and validated.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// ProfileTarget names a table to profile and where its rules go.
type ProfileTarget struct {
	Table string `yaml:"table"`
	Asset string `yaml:"asset,omitempty"` // defaults to <table>_asset
	Suite string `yaml:"suite,omitempty"` // defaults to <table>_auto
}

// ValidationTarget is one (datasource, asset, suite) triple to validate.
type ValidationTarget struct {
	Datasource string `yaml:"datasource,omitempty"` // defaults to the file's datasource
	Asset      string `yaml:"asset"`
	Suite      string `yaml:"suite"`
}

// File is the on-disk project description.
type File struct {
	Datasource  string             `yaml:"datasource"`
	Tables      []string           `yaml:"tables"`
	Profile     []ProfileTarget    `yaml:"profile"`
	Validations []ValidationTarget `yaml:"validations"`
}

// Default returns the built-in TPC-C layout: nine registered tables, five
// of them profiled and validated.
func Default(datasource string) *File {
	if datasource == "" {
		datasource = domain.DefaultDatasourceName
	}
	f := &File{
		Datasource: datasource,
		Tables:     append([]string(nil), domain.DefaultTables...),
	}
	for _, t := range domain.DefaultProfileTables {
		f.Profile = append(f.Profile, ProfileTarget{Table: t})
	}
	for _, t := range domain.DefaultProfileTables {
		f.Validations = append(f.Validations, ValidationTarget{
			Asset: domain.AssetName(t),
			Suite: domain.SuiteName(t),
		})
	}
	f.applyDefaults()
	return f
}

// Load reads and validates a project file. Missing sections fall back to
// the built-in defaults.
func Load(path, datasource string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing project YAML: %w", err)
	}

	def := Default(datasource)
	if f.Datasource == "" {
		f.Datasource = def.Datasource
	}
	if len(f.Tables) == 0 {
		f.Tables = def.Tables
	}
	if f.Profile == nil {
		f.Profile = def.Profile
	}
	if f.Validations == nil {
		for _, p := range f.Profile {
			f.Validations = append(f.Validations, ValidationTarget{
				Asset: orDefault(p.Asset, domain.AssetName(p.Table)),
				Suite: orDefault(p.Suite, domain.SuiteName(p.Table)),
			})
		}
	}
	f.applyDefaults()

	if err := validate(&f); err != nil {
		return nil, fmt.Errorf("validating project file: %w", err)
	}
	return &f, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path, datasource string) (*File, error) {
	f, err := Load(path, datasource)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(datasource), nil
	}
	return f, err
}

// ProfileTargets returns the profile targets restricted to tables, in the
// order given. An empty filter returns every target.
func (f *File) ProfileTargets(tables []string) []ProfileTarget {
	if len(tables) == 0 {
		return f.Profile
	}
	known := make(map[string]ProfileTarget, len(f.Profile))
	for _, p := range f.Profile {
		known[p.Table] = p
	}
	out := make([]ProfileTarget, 0, len(tables))
	for _, t := range tables {
		p, ok := known[t]
		if !ok {
			p = ProfileTarget{Table: t, Asset: domain.AssetName(t), Suite: domain.SuiteName(t)}
		}
		out = append(out, p)
	}
	return out
}

func (f *File) applyDefaults() {
	for i := range f.Profile {
		p := &f.Profile[i]
		p.Asset = orDefault(p.Asset, domain.AssetName(p.Table))
		p.Suite = orDefault(p.Suite, domain.SuiteName(p.Table))
	}
	for i := range f.Validations {
		v := &f.Validations[i]
		v.Datasource = orDefault(v.Datasource, f.Datasource)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func validate(f *File) error {
	seen := make(map[string]bool, len(f.Tables))
	for i, t := range f.Tables {
		if t == "" {
			return fmt.Errorf("tables[%d] is empty", i)
		}
		if seen[t] {
			return fmt.Errorf("tables[%d]: duplicate table %q", i, t)
		}
		seen[t] = true
	}
	for i, p := range f.Profile {
		if p.Table == "" {
			return fmt.Errorf("profile[%d].table is required", i)
		}
	}
	for i, v := range f.Validations {
		if v.Asset == "" || v.Suite == "" {
			return fmt.Errorf("validations[%d]: asset and suite are required", i)
		}
	}
	return nil
}

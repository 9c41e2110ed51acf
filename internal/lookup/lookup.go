// Package lookup holds the static language, region and collection tables.
//
// Tables are immutable after Load and are passed to the components that need them;
// nothing in this package is a mutable global.
package lookup

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Language maps between the two code systems used by upstream catalogs.
type Language struct {
	Code  string `yaml:"code" json:"code"`   // ISO 639-1
	Code3 string `yaml:"code3" json:"code3"` // ISO 639-2/B (MARC)
	Name  string `yaml:"name" json:"name"`
}

// Region is a country with its preferred languages.
type Region struct {
	Code      string   `yaml:"code" json:"code"`
	Name      string   `yaml:"name" json:"name"`
	Languages []string `yaml:"languages" json:"languages"`
}

// Collection is a named archive collection.
type Collection struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Tables is the loaded set of lookup tables.
type Tables struct {
	Languages   []Language   `yaml:"languages"`
	Regions     []Region     `yaml:"regions"`
	Collections []Collection `yaml:"collections"`

	byCode  map[string]Language
	regions map[string]Region
	colls   map[string]Collection
}

// Default parses the tables embedded in the binary.
func Default() (*Tables, error) {
	return Parse(defaultTables)
}

// MustDefault is Default for process start-up; the embedded file is part of the build.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Parse builds tables from YAML.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse lookup tables: %w", err)
	}

	t.byCode = make(map[string]Language, len(t.Languages)*2)
	for _, l := range t.Languages {
		if l.Code == "" {
			return nil, fmt.Errorf("language %q has no code", l.Name)
		}
		t.byCode[strings.ToLower(l.Code)] = l
		if l.Code3 != "" {
			t.byCode[strings.ToLower(l.Code3)] = l
		}
	}
	t.regions = make(map[string]Region, len(t.Regions))
	for _, r := range t.Regions {
		t.regions[strings.ToUpper(r.Code)] = r
	}
	t.colls = make(map[string]Collection, len(t.Collections))
	for _, c := range t.Collections {
		t.colls[strings.ToLower(c.ID)] = c
	}
	return &t, nil
}

// Language resolves a 2- or 3-letter code.
func (t *Tables) Language(code string) (Language, bool) {
	if t == nil {
		return Language{}, false
	}
	l, ok := t.byCode[strings.ToLower(strings.TrimSpace(code))]
	return l, ok
}

// Code3 converts an ISO 639-1 code to the MARC code used by Open Library and the Archive.
// Unknown codes are returned unchanged.
func (t *Tables) Code3(code string) string {
	if l, ok := t.Language(code); ok && l.Code3 != "" {
		return l.Code3
	}
	return code
}

// Region looks up a region by country code.
func (t *Tables) Region(code string) (Region, bool) {
	if t == nil {
		return Region{}, false
	}
	r, ok := t.regions[strings.ToUpper(strings.TrimSpace(code))]
	return r, ok
}

// Collection looks up an archive collection by id.
func (t *Tables) Collection(id string) (Collection, bool) {
	if t == nil {
		return Collection{}, false
	}
	c, ok := t.colls[strings.ToLower(strings.TrimSpace(id))]
	return c, ok
}

// FindLanguages returns languages whose name or code fuzzily matches query.
// An empty query returns the whole table.
func (t *Tables) FindLanguages(query string) []Language {
	out := []Language{}
	for _, l := range t.Languages {
		if matches(query, l.Name, l.Code, l.Code3) {
			out = append(out, l)
		}
	}
	return out
}

// FindRegions returns regions whose name or code fuzzily matches query.
func (t *Tables) FindRegions(query string) []Region {
	out := []Region{}
	for _, r := range t.Regions {
		if matches(query, r.Name, r.Code) {
			out = append(out, r)
		}
	}
	return out
}

// FindCollections returns collections whose name or id fuzzily matches query.
func (t *Tables) FindCollections(query string) []Collection {
	out := []Collection{}
	for _, c := range t.Collections {
		if matches(query, c.Name, c.ID) {
			out = append(out, c)
		}
	}
	return out
}

func matches(query string, fields ...string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	for _, f := range fields {
		if fuzzy.MatchNormalizedFold(query, f) {
			return true
		}
	}
	return false
}

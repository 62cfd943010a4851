package lint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// Declaration is one rule variant declaration file in a profile directory.
type Declaration struct {
	ID      string     `yaml:"id"`
	Enabled *bool      `yaml:"enabled"`
	Config  RuleConfig `yaml:"config"`

	Source string `yaml:"-"` // file the declaration was read from
}

// IsEnabled reports whether the declaration is enabled (default true).
func (d *Declaration) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// declarationExts are the file extensions read as declarations.
var declarationExts = []string{".yaml", ".yml", ".json"}

// ParseDeclaration decodes a declaration. Unknown top-level or config keys
// are rejected; settings stay free-form for the family to validate.
func ParseDeclaration(source string, data []byte) (*Declaration, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Declaration
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty declaration")
		}
		return nil, &core.RuleConfigError{Source: source, Err: err}
	}
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		return nil, &core.RuleConfigError{Source: source, Err: errors.New("missing id")}
	}
	d.Source = source
	return &d, nil
}

// LoadRulesForProfile instantiates every enabled rule variant declared in
// rulesPath into a catalog.
//
// When enabled is non-empty it is the profile's explicit rule list: only those
// ids are loaded, and ids without a declaration file are built with an empty
// config. Otherwise every declaration not marked `enabled: false` is loaded.
// Declarations are read in lexical file order, which is also catalog order.
func LoadRulesForProfile(fsys afero.Fs, rulesPath string, enabled []string) (*Catalog, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	wanted := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		wanted[strings.TrimSpace(id)] = true
	}

	decls, err := readDeclarations(fsys, rulesPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || len(wanted) == 0 {
			return nil, &core.ConfigurationError{Op: "load rules from " + rulesPath, Err: err}
		}
		decls = nil
	}

	catalog := NewCatalog()
	for _, d := range decls {
		if len(wanted) > 0 {
			if !wanted[d.ID] {
				continue
			}
		} else if !d.IsEnabled() {
			continue
		}

		rule, err := Build(d.ID, d.Config)
		if err != nil {
			return nil, withSource(err, d.Source)
		}
		if err := catalog.add(rule, d.Source); err != nil {
			return nil, err
		}
	}

	// Explicitly enabled ids without a declaration file.
	for _, id := range enabled {
		id = strings.TrimSpace(id)
		if id == "" || catalog.Has(id) {
			continue
		}
		rule, err := Build(id, RuleConfig{})
		if err != nil {
			return nil, err
		}
		if err := catalog.add(rule, ""); err != nil {
			return nil, err
		}
	}

	return catalog, nil
}

func readDeclarations(fsys afero.Fs, dir string) ([]*Declaration, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var decls []*Declaration
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(declarationExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		d, err := ParseDeclaration(path, data)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// withSource attaches the declaration file to load errors.
func withSource(err error, source string) error {
	var rce *core.RuleConfigError
	if errors.As(err, &rce) && rce.Source == "" {
		rce.Source = source
		return rce
	}
	var rnf *core.RuleNotFoundError
	if errors.As(err, &rnf) {
		return fmt.Errorf("%s: %w", source, err)
	}
	return err
}

// =============================================================================
// Catalog
// =============================================================================

// Catalog holds the rule instances of one run, unique by full id.
// Iteration order is load order.
type Catalog struct {
	rules   []Rule
	byID    map[string]Rule
	sources map[string]string
}

// NewCatalog returns an empty catalog. Use FromRules to build one from rules.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:    make(map[string]Rule),
		sources: make(map[string]string),
	}
}

// FromRules builds a catalog and reports duplicate ids.
func FromRules(rules ...Rule) (*Catalog, error) {
	c := NewCatalog()
	for _, r := range rules {
		if err := c.add(r, ""); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(r Rule, source string) error {
	id := r.ID().Full
	if _, dup := c.byID[id]; dup {
		prev := c.sources[id]
		return &core.RuleConfigError{
			Source: source,
			ID:     id,
			Err:    fmt.Errorf("duplicate rule id (already declared in %q)", prev),
		}
	}
	c.rules = append(c.rules, r)
	c.byID[id] = r
	c.sources[id] = source
	return nil
}

// Rules returns the rules in load order. The slice is a copy.
func (c *Catalog) Rules() []Rule {
	if c == nil {
		return nil
	}
	return slices.Clone(c.rules)
}

// Get returns a rule by full id.
func (c *Catalog) Get(id string) (Rule, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Has reports whether a full id is loaded.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Source returns the declaration file a rule came from ("" when defaulted).
func (c *Catalog) Source(id string) string {
	return c.sources[id]
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// IDs returns full ids in load order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.rules))
	for i, r := range c.rules {
		ids[i] = r.ID().Full
	}
	return ids
}

// SelectRules restricts rules to the given full ids, keeping rule order.
// Ids that match no rule are returned as missing.
func SelectRules(rules []Rule, ids []string) (selected []Rule, missing []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = true
	}
	found := make(map[string]bool, len(ids))
	for _, r := range rules {
		if want[r.ID().Full] {
			selected = append(selected, r)
			found[r.ID().Full] = true
		}
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !found[id] && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}
	return selected, missing
}

package lint

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// Factory builds one variant of a family from its declaration config.
type Factory func(id core.RuleID, cfg RuleConfig) (Rule, error)

// Family registers the constructor for every variant of one rule family.
type Family struct {
	Major       string   // e.g. "file-naming"
	Description string   // Human-readable description
	Variants    []string // Minor ids the factory can build
	New         Factory
}

// HasVariant reports whether the family can build minor.
func (f Family) HasVariant(minor string) bool {
	return slices.Contains(f.Variants, minor)
}

var (
	familiesMu sync.RWMutex
	families   = make(map[string]Family)
)

// Register adds a rule family to the registry.
// Call this from init() functions in rule packages. Registering the same
// major twice is a programming error and panics.
func Register(f Family) {
	familiesMu.Lock()
	defer familiesMu.Unlock()
	if f.Major == "" || f.New == nil {
		panic("lint: family must have a major id and a factory")
	}
	if _, dup := families[f.Major]; dup {
		panic(fmt.Sprintf("lint: family %q registered twice", f.Major))
	}
	families[f.Major] = f
}

// LookupFamily retrieves a family by major id.
func LookupFamily(major string) (Family, bool) {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	f, ok := families[major]
	return f, ok
}

// Families returns all registered families sorted by major id.
func Families() []Family {
	familiesMu.RLock()
	defer familiesMu.RUnlock()
	out := make([]Family, 0, len(families))
	for _, f := range families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Major < out[j].Major })
	return out
}

// AvailableRuleIDs lists every full id the registry can build (sorted).
func AvailableRuleIDs() []string {
	var ids []string
	for _, f := range Families() {
		for _, v := range f.Variants {
			ids = append(ids, core.NewRuleID(f.Major, v).Full)
		}
	}
	sort.Strings(ids)
	return ids
}

// Build resolves the factory for a full id and builds the rule.
func Build(fullID string, cfg RuleConfig) (Rule, error) {
	id, err := core.ParseRuleID(fullID)
	if err != nil {
		return nil, &core.RuleConfigError{ID: fullID, Err: err}
	}
	fam, ok := LookupFamily(id.Major)
	if !ok || !fam.HasVariant(id.Minor) {
		return nil, &core.RuleNotFoundError{ID: fullID, Available: AvailableRuleIDs()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &core.RuleConfigError{ID: fullID, Err: err}
	}
	rule, err := fam.New(id, cfg)
	if err != nil {
		var rce *core.RuleConfigError
		if errors.As(err, &rce) {
			return nil, err
		}
		return nil, &core.RuleConfigError{ID: fullID, Err: err}
	}
	return rule, nil
}

// unregister removes a family. Used for testing.
func unregister(major string) {
	familiesMu.Lock()
	defer familiesMu.Unlock()
	delete(families, major)
}

package lint

import (
	"fmt"
	"maps"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// RuleConfig decides where a rule applies and carries its family settings.
// Glob lists are matched against vault-relative, forward-slash paths.
type RuleConfig struct {
	PathAllowlist   []string       `yaml:"path_allowlist" koanf:"path_allowlist"`
	PathDenylist    []string       `yaml:"path_denylist" koanf:"path_denylist"`
	IncludePatterns []string       `yaml:"include_patterns" koanf:"include_patterns"`
	ExcludePatterns []string       `yaml:"exclude_patterns" koanf:"exclude_patterns"`
	Settings        map[string]any `yaml:"settings" koanf:"settings"`
}

// Validate rejects malformed glob patterns.
func (c RuleConfig) Validate() error {
	lists := []struct {
		name     string
		patterns []string
	}{
		{"path_allowlist", c.PathAllowlist},
		{"path_denylist", c.PathDenylist},
		{"include_patterns", c.IncludePatterns},
		{"exclude_patterns", c.ExcludePatterns},
	}
	for _, l := range lists {
		for _, p := range l.patterns {
			if !doublestar.ValidatePattern(normalizePattern(p)) {
				return fmt.Errorf("%s: invalid glob %q", l.name, p)
			}
		}
	}
	return nil
}

// clone returns a copy that shares no slices or maps with c.
// Settings values are copied one level deep.
func (c RuleConfig) clone() RuleConfig {
	out := RuleConfig{
		PathAllowlist:   slices.Clone(c.PathAllowlist),
		PathDenylist:    slices.Clone(c.PathDenylist),
		IncludePatterns: slices.Clone(c.IncludePatterns),
		ExcludePatterns: slices.Clone(c.ExcludePatterns),
	}
	if c.Settings != nil {
		out.Settings = maps.Clone(c.Settings)
	}
	return out
}

// Setting returns the typed view of the settings map.
func (c RuleConfig) Setting() Settings {
	return Settings(c.Settings)
}

// Package config provides the vault configuration shared by the CLI and the
// watch mode. It is decoupled from CLI concerns: flags and environment
// layering live in internal/cli/config.
package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// Configuration is the contents of vaultlint.yaml.
type Configuration struct {
	General       GeneralConfig      `koanf:"general"`
	ActiveProfile string             `koanf:"active_profile"`
	Profiles      map[string]Profile `koanf:"profiles"`
}

// GeneralConfig holds run-wide settings.
type GeneralConfig struct {
	VaultRoot      string   `koanf:"vault_root"`
	DryRun         bool     `koanf:"dry_run"`
	Verbose        bool     `koanf:"verbose"`
	Fix            bool     `koanf:"fix"`
	Parallel       bool     `koanf:"parallel"`
	MaxConcurrency int      `koanf:"max_concurrency"`
	ConflictPolicy string   `koanf:"conflict_policy"` // reject | first-wins
	Backup         bool     `koanf:"backup"`
	BackupDir      string   `koanf:"backup_dir"`
	Ignore         []string `koanf:"ignore"`
	LogLevel       string   `koanf:"log_level"`
}

// Profile selects the rule declarations for one kind of run.
type Profile struct {
	Name             string   `koanf:"name"`
	Description      string   `koanf:"description"`
	RulesPath        string   `koanf:"rules_path"`
	EnabledRules     []string `koanf:"enabled_rules"`
	RequiredFamilies []string `koanf:"required_families"`
}

// Profile returns the named profile, or the active profile when name is
// empty. An unknown name is a ConfigurationError.
func (c *Configuration) Profile(name string) (*Profile, error) {
	if name == "" {
		name = c.ActiveProfile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return nil, &core.ConfigurationError{
			Op:  "select profile",
			Err: fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(c.ProfileNames(), ", ")),
		}
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}

// ProfileNames returns the configured profile names, sorted.
func (c *Configuration) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConflictPolicy returns the parsed conflict policy.
func (c *Configuration) ConflictPolicy() (lint.ConflictPolicy, error) {
	return lint.ParseConflictPolicy(c.General.ConflictPolicy)
}

// ProcessOptions maps the general section onto orchestrator options.
func (c *Configuration) ProcessOptions() core.ProcessOptions {
	g := c.General
	return core.ProcessOptions{
		DryRun:         g.DryRun,
		Fix:            g.Fix,
		Verbose:        g.Verbose,
		Ignore:         slices.Clone(g.Ignore),
		Parallel:       g.Parallel,
		MaxConcurrency: g.MaxConcurrency,
		Backup:         g.Backup,
	}
}

// Validate checks values that would otherwise fail late in a run.
func (c *Configuration) Validate() error {
	if _, err := c.ConflictPolicy(); err != nil {
		return &core.ConfigurationError{Op: "general.conflict_policy", Err: err}
	}
	if c.General.MaxConcurrency < 0 {
		return &core.ConfigurationError{
			Op:  "general.max_concurrency",
			Err: fmt.Errorf("must not be negative, got %d", c.General.MaxConcurrency),
		}
	}
	if c.ActiveProfile != "" {
		if _, err := c.Profile(c.ActiveProfile); err != nil {
			return err
		}
	}
	for name, p := range c.Profiles {
		if strings.TrimSpace(p.RulesPath) == "" && len(p.EnabledRules) == 0 {
			return &core.ConfigurationError{
				Op:  "profiles." + name,
				Err: fmt.Errorf("profile needs rules_path or enabled_rules"),
			}
		}
	}
	return nil
}

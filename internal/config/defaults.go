package config

import (
	"path/filepath"

	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// Default configuration values.
const (
	DefaultProfile        = "default"
	DefaultRulesPath      = ".vaultlint/rules/default"
	DefaultBackupDir      = ".vaultlint/backups"
	DefaultMaxConcurrency = 4
	DefaultLogLevel       = "warn"
)

// DefaultIgnore are globs skipped during discovery unless overridden.
var DefaultIgnore = []string{".obsidian/**", ".trash/**"}

// Defaults returns the default configuration as a flat key map, ready for
// a koanf confmap provider.
func Defaults() map[string]any {
	return map[string]any{
		"general.vault_root":      ".",
		"general.dry_run":         false,
		"general.verbose":         false,
		"general.fix":             false,
		"general.parallel":        true,
		"general.max_concurrency": DefaultMaxConcurrency,
		"general.conflict_policy": string(lint.PolicyReject),
		"general.backup":          false,
		"general.backup_dir":      DefaultBackupDir,
		"general.ignore":          append([]string(nil), DefaultIgnore...),
		"general.log_level":       DefaultLogLevel,
		"active_profile":          DefaultProfile,
	}
}

// ApplyDefaults fills values missing from a decoded configuration.
func ApplyDefaults(c *Configuration) {
	if c == nil {
		return
	}
	if c.General.VaultRoot == "" {
		c.General.VaultRoot = "."
	}
	if c.General.ConflictPolicy == "" {
		c.General.ConflictPolicy = string(lint.PolicyReject)
	}
	if c.General.BackupDir == "" {
		c.General.BackupDir = DefaultBackupDir
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = DefaultLogLevel
	}
	if c.ActiveProfile == "" {
		c.ActiveProfile = DefaultProfile
	}
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	if _, ok := c.Profiles[DefaultProfile]; !ok && c.ActiveProfile == DefaultProfile {
		c.Profiles[DefaultProfile] = Profile{
			Name:        DefaultProfile,
			Description: "Default profile",
			RulesPath:   DefaultRulesPath,
		}
	}
	for name, p := range c.Profiles {
		if p.Name == "" {
			p.Name = name
			c.Profiles[name] = p
		}
	}
}

// ResolvePaths makes relative paths absolute against baseDir, which is the
// directory of the configuration file. backup_dir stays vault-relative.
func ResolvePaths(c *Configuration, baseDir string) {
	c.General.VaultRoot = resolvePathRelativeTo(c.General.VaultRoot, baseDir)
	for name, p := range c.Profiles {
		p.RulesPath = resolvePathRelativeTo(p.RulesPath, baseDir)
		c.Profiles[name] = p
	}
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

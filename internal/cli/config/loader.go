// Package config layers CLI configuration: built-in defaults, the
// vaultlint.yaml file, VAULTLINT_ environment variables and changed flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/vaultlint/internal/config"
	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// EnvPrefix is the prefix of configuration environment variables.
// A double underscore separates nesting levels: VAULTLINT_GENERAL__FIX=true.
const EnvPrefix = "VAULTLINT_"

// flagKeys maps CLI flag names to configuration keys. Flags not listed here
// are command options and never reach the configuration.
var flagKeys = map[string]string{
	"profile":         "active_profile",
	"fix":             "general.fix",
	"dry-run":         "general.dry_run",
	"verbose":         "general.verbose",
	"parallel":        "general.parallel",
	"max-concurrency": "general.max_concurrency",
	"conflict-policy": "general.conflict_policy",
	"backup":          "general.backup",
	"backup-dir":      "general.backup_dir",
	"ignore":          "general.ignore",
	"log-level":       "general.log_level",
}

// Loaded is a resolved configuration and where it came from.
type Loaded struct {
	*intconfig.Configuration
	// File is the configuration file used, empty when none was found.
	File string
	// BaseDir anchors relative paths: the file's directory or the working directory.
	BaseDir string
}

// Load builds the configuration. cfgFile, when set, must exist; otherwise
// vaultlint.yaml is searched upward from the working directory.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Loaded, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return LoadFrom(cwd, cfgFile, flags)
}

// LoadFrom is Load with an explicit working directory.
func LoadFrom(cwd, cfgFile string, flags *pflag.FlagSet) (*Loaded, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(intconfig.Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := ""
	if cfgFile != "" {
		used = resolvePathRelativeTo(cfgFile, cwd)
		if _, err := os.Stat(used); err != nil {
			return nil, &core.ConfigurationError{Op: "open config file", Err: err}
		}
	} else if dir := intconfig.FindConfigDir(cwd); dir != "" {
		used = intconfig.FindConfigFile(dir)
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, &core.ConfigurationError{Op: "read " + used, Err: err}
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Changed flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg, err := intconfig.Unmarshal(k)
	if err != nil {
		return nil, err
	}

	base := cwd
	if used != "" {
		base = filepath.Dir(used)
	}
	intconfig.ResolvePaths(cfg, base)

	return &Loaded{Configuration: cfg, File: used, BaseDir: base}, nil
}

// envKey transforms VAULTLINT_GENERAL__DRY_RUN into general.dry_run.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

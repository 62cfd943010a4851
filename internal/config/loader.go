package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "vaultlint.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "vaultlint.yml"

// MaxUpwardSearchLevels limits how far up the directory tree FindConfigDir looks.
const MaxUpwardSearchLevels = 10

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindConfigDir walks up from startDir to find a directory containing
// vaultlint.yaml or vaultlint.yml. Returns empty string if not found within
// MaxUpwardSearchLevels.
func FindConfigDir(startDir string) string {
	dir := startDir
	for range MaxUpwardSearchLevels {
		if FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
	return ""
}

// LoadFile loads a Configuration from path with defaults applied and paths
// resolved against the file's directory. A missing or malformed file is a
// ConfigurationError.
func LoadFile(path string) (*Configuration, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, &core.ConfigurationError{Op: "read " + path, Err: err}
	}

	cfg, err := Unmarshal(k)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	ResolvePaths(cfg, filepath.Dir(abs))
	return cfg, nil
}

// LoadFromDir loads the config file found in dir. Returns nil, nil when the
// directory has none.
func LoadFromDir(dir string) (*Configuration, error) {
	p := FindConfigFile(dir)
	if p == "" {
		return nil, nil
	}
	return LoadFile(p)
}

// Unmarshal decodes a populated koanf instance, applies defaults and validates.
func Unmarshal(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &core.ConfigurationError{Op: "decode configuration", Err: err}
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultlint/internal/cli/config"
	"github.com/leapstack-labs/vaultlint/internal/cli/output"
	intconfig "github.com/leapstack-labs/vaultlint/internal/config"
	"github.com/leapstack-labs/vaultlint/internal/engine"
	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
	_ "github.com/leapstack-labs/vaultlint/pkg/lint/rules" // register rule families
)

// ErrIssuesFound is returned by commands that found lint issues. The process
// exits with status 1 without printing it as an error.
var ErrIssuesFound = errors.New("lint issues found")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Loaded
	Logger   *slog.Logger
	Renderer *output.Renderer
	FS       afero.Fs
}

// vaultArgAnnotation marks commands whose first argument is a vault path.
// Configuration is then searched from the vault instead of the working directory.
const vaultArgAnnotation = "vaultlint/vault-arg"

// LoadConfig loads the configuration for cmd, honoring --config.
func LoadConfig(cmd *cobra.Command, args []string) (*config.Loaded, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	start, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	if cmd.Annotations[vaultArgAnnotation] == "true" && len(args) > 0 && args[0] != "" {
		if start, err = filepath.Abs(args[0]); err != nil {
			return nil, fmt.Errorf("invalid vault path %s: %w", args[0], err)
		}
	}
	return config.LoadFrom(start, cfgFile, cmd.Flags())
}

// NewCommandContext resolves configuration, logger and renderer for cmd.
// The root command stores config and logger in the context; commands run on
// their own (as in tests) load them here.
func NewCommandContext(cmd *cobra.Command, args []string, format string) (*CommandContext, error) {
	cfg, ok := config.GetConfig(cmd.Context())
	if !ok {
		var err error
		if cfg, err = LoadConfig(cmd, args); err != nil {
			return nil, err
		}
	}

	mode, err := output.ParseMode(format)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
		FS:       afero.NewOsFs(),
	}, nil
}

// ProfileRules is a profile's loaded rule set before conflict resolution.
type ProfileRules struct {
	Profile    *intconfig.Profile
	Policy     lint.ConflictPolicy
	Rules      []lint.Rule
	Validation lint.ValidationResult
}

// LoadProfile loads the rule declarations of a profile (the active one when
// name is empty) and validates them for conflicts.
func (c *CommandContext) LoadProfile(name string) (*ProfileRules, error) {
	profile, err := c.Cfg.Profile(name)
	if err != nil {
		return nil, err
	}
	policy, err := c.Cfg.ConflictPolicy()
	if err != nil {
		return nil, err
	}

	catalog, err := lint.LoadRulesForProfile(c.FS, profile.RulesPath, profile.EnabledRules)
	if err != nil {
		return nil, err
	}
	rules := catalog.Rules()

	return &ProfileRules{
		Profile: profile,
		Policy:  policy,
		Rules:   rules,
		Validation: lint.ValidateRuleConflicts(rules, lint.ConflictOptions{
			Policy:           policy,
			RequiredFamilies: profile.RequiredFamilies,
		}),
	}, nil
}

// LoadRules builds the conflict-free rule set of a profile (the active one
// when name is empty). Required-family warnings are logged.
func (c *CommandContext) LoadRules(name string) ([]lint.Rule, error) {
	pr, err := c.LoadProfile(name)
	if err != nil {
		return nil, err
	}
	for _, w := range pr.Validation.Warnings {
		c.Logger.Warn(w.Message, "family", w.MajorID, "profile", pr.Profile.Name)
	}
	rules, err := lint.ResolveConflicts(pr.Rules, pr.Validation, pr.Policy)
	if err != nil {
		return nil, err
	}

	c.Logger.Debug("loaded rules", "profile", pr.Profile.Name, "rules", len(rules), "path", pr.Profile.RulesPath)
	return rules, nil
}

// NewEngine creates an engine over rules using the configured backup dir.
func (c *CommandContext) NewEngine(rules []lint.Rule) *engine.Engine {
	return engine.New(engine.Config{
		Rules:              rules,
		FS:                 c.FS,
		Logger:             c.Logger,
		DefaultConcurrency: c.Cfg.General.MaxConcurrency,
		BackupDir:          c.Cfg.General.BackupDir,
	})
}

// VaultRoot returns the vault directory: the positional argument resolved
// against the working directory, or the configured vault_root.
func (c *CommandContext) VaultRoot(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return c.Cfg.General.VaultRoot, nil
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid vault path %s: %w", args[0], err)
	}
	return abs, nil
}

// ProcessOptions maps the configuration onto engine options for vault. A
// configuration file inside the vault is never linted.
func (c *CommandContext) ProcessOptions(vault string) core.ProcessOptions {
	opts := c.Cfg.ProcessOptions()
	if c.Cfg.File == "" {
		return opts
	}
	rel, err := filepath.Rel(vault, c.Cfg.File)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return opts
	}
	opts.Ignore = append(opts.Ignore, filepath.ToSlash(rel))
	return opts
}

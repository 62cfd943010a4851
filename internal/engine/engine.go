// Package engine provides the vault lint orchestrator.
// It discovers files, runs the applicable rules on each of them under a
// concurrency policy, aggregates issues and applies fixes.
package engine

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
	"github.com/leapstack-labs/vaultlint/pkg/markdown"
)

// DefaultBackupDir is the vault-relative directory for .bak copies.
const DefaultBackupDir = ".vaultlint/backups"

// maxDefaultConcurrency caps the CPU-derived worker count.
const maxDefaultConcurrency = 8

// Parser turns file content into a document for rules.
type Parser interface {
	Parse(path string, content []byte) (*core.ParsedDocument, error)
}

// Engine orchestrates lint runs over a vault.
type Engine struct {
	rules              []lint.Rule
	fs                 afero.Fs
	parser             Parser
	logger             *slog.Logger
	defaultConcurrency int
	backupDir          string

	state atomic.Int32
	runMu sync.Mutex // one ProcessVault at a time
}

// Config holds engine configuration.
type Config struct {
	// Rules is the resolved rule set in application order.
	Rules []lint.Rule
	// FS is the filesystem the vault lives on (defaults to the OS filesystem)
	FS afero.Fs
	// Parser builds documents (defaults to the Markdown parser)
	Parser Parser
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// DefaultConcurrency is used when ProcessOptions.MaxConcurrency is 0.
	DefaultConcurrency int
	// BackupDir is vault-relative; it is never linted.
	BackupDir string
}

// New creates an engine. The rule slice is copied.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fs := cfg.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	parser := cfg.Parser
	if parser == nil {
		parser = markdown.New()
	}
	backupDir := lint.NormalizePath(cfg.BackupDir)
	if backupDir == "" {
		backupDir = DefaultBackupDir
	}

	e := &Engine{
		rules:              append([]lint.Rule(nil), cfg.Rules...),
		fs:                 fs,
		parser:             parser,
		logger:             logger,
		defaultConcurrency: cfg.DefaultConcurrency,
		backupDir:          backupDir,
	}
	e.setState(StateIdle)

	logger.Debug("initializing engine", "rules", len(e.rules), "backup_dir", backupDir)
	return e
}

// Rules returns the engine's rules in application order.
func (e *Engine) Rules() []lint.Rule {
	return append([]lint.Rule(nil), e.rules...)
}

// concurrency resolves the worker count for a run.
func (e *Engine) concurrency(opts core.ProcessOptions) int {
	if !opts.Parallel {
		return 1
	}
	if opts.MaxConcurrency > 0 {
		return opts.MaxConcurrency
	}
	if e.defaultConcurrency > 0 {
		return e.defaultConcurrency
	}
	return min(runtime.NumCPU(), maxDefaultConcurrency)
}

// selectRules restricts the engine's rules to the requested full ids.
func (e *Engine) selectRules(ids []string) ([]lint.Rule, error) {
	if len(ids) == 0 {
		return e.rules, nil
	}
	selected, missing := lint.SelectRules(e.rules, ids)
	if len(missing) > 0 {
		return nil, &core.ConfigurationError{
			Op:  "select rules",
			Err: &core.RuleNotFoundError{ID: missing[0], Available: e.ruleIDs()},
		}
	}
	return selected, nil
}

func (e *Engine) ruleIDs() []string {
	ids := make([]string, len(e.rules))
	for i, r := range e.rules {
		ids[i] = r.ID().Full
	}
	return ids
}

// LintFile lints one vault-relative file and never writes. It is the entry
// point for editor and watch integrations.
func (e *Engine) LintFile(ctx context.Context, vaultPath, relPath string, opts core.ProcessOptions) (*core.LintResult, error) {
	rules, err := e.selectRules(opts.Rules)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run := &vaultRun{engine: e, root: vaultPath, opts: opts, rules: rules, logger: e.logger}
	out := run.lintOne(lint.NormalizePath(relPath))

	result := &core.LintResult{
		FilesProcessed: 1,
		IssuesFound:    out.issues,
		Errors:         out.errors,
	}
	result.Normalize()
	return result, nil
}

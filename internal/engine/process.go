package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// vaultRun carries the per-run inputs shared by workers. Workers only read it.
type vaultRun struct {
	engine *Engine
	root   string
	opts   core.ProcessOptions
	rules  []lint.Rule
	logger *slog.Logger
}

// fileOutcome is everything one worker produced for one file. Each worker
// owns exactly one outcome, so no locking is needed.
type fileOutcome struct {
	path    string
	content string
	rules   []lint.Rule // applicable rules in catalog order
	issues  []core.Issue
	errors  []core.ProcessingError
	readOK  bool

	// Fix phase results
	fixes     []core.Fix
	fixErrors []core.ProcessingError
	newText   string
	renameTo  string
	renameFix int // index into fixes of the fix carrying the rename, -1 if none
}

// ProcessVault lints every discovered file in vaultPath and, when opts.Fix is
// set, applies fixes. A cancelled ctx stops scheduling new files; files in
// flight complete and the partial result is returned with ctx.Err().
func (e *Engine) ProcessVault(ctx context.Context, vaultPath string, opts core.ProcessOptions, progress core.ProgressFunc) (*core.LintResult, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	result := &core.LintResult{RunID: runID}

	e.setState(StateDiscovering)
	rules, err := e.selectRules(opts.Rules)
	if err != nil {
		e.setState(StateAborted)
		return nil, err
	}
	disc, err := e.discover(vaultPath, opts.Ignore)
	if err != nil {
		e.setState(StateAborted)
		return nil, err
	}
	result.Errors = append(result.Errors, disc.errors...)
	logger.Info("starting lint run", "vault", vaultPath, "files_total", len(disc.files), "rules", len(rules))

	run := &vaultRun{engine: e, root: vaultPath, opts: opts, rules: rules, logger: logger}
	outcomes := make([]*fileOutcome, len(disc.files))

	e.setState(StateLinting)
	tracker := newProgress(len(disc.files), progress)
	lintErr := e.forEach(ctx, len(disc.files), opts, func(i int) {
		outcomes[i] = run.lintOne(disc.files[i])
		tracker.step(disc.files[i])
	})

	for _, out := range outcomes {
		if out == nil {
			continue // never scheduled
		}
		result.FilesProcessed++
		result.IssuesFound = append(result.IssuesFound, out.issues...)
		result.Errors = append(result.Errors, out.errors...)
	}

	if lintErr != nil {
		e.setState(StateAborted)
		result.Duration = time.Since(start)
		result.Normalize()
		logger.Warn("lint run cancelled", "files_processed", result.FilesProcessed)
		return result, lintErr
	}

	if opts.Fix {
		e.setState(StateFixing)
		// Fixes are computed and content is written per file in parallel.
		// Renames are committed in file order so results do not depend on
		// scheduling.
		_ = e.forEach(context.WithoutCancel(ctx), len(outcomes), opts, func(i int) {
			if out := outcomes[i]; out != nil && out.readOK && core.HasFixable(out.issues) {
				run.fixOne(out)
			}
		})
		run.commitRenames(outcomes)
		for _, out := range outcomes {
			if out == nil {
				continue
			}
			result.FixesApplied = append(result.FixesApplied, out.fixes...)
			result.Errors = append(result.Errors, out.fixErrors...)
		}
	}

	e.setState(StateReporting)
	if opts.GenerateMOC {
		fixes, errs := run.generateMOCs(finalPaths(outcomes))
		result.FixesApplied = append(result.FixesApplied, fixes...)
		result.Errors = append(result.Errors, errs...)
	}

	result.Duration = time.Since(start)
	result.Normalize()
	e.setState(StateDone)

	logger.Info("lint run completed",
		"files_processed", result.FilesProcessed,
		"issues", len(result.IssuesFound),
		"fixes", len(result.FixesApplied),
		"errors", len(result.Errors),
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// forEach runs fn for indexes [0, n) sequentially or on an errgroup-bounded
// pool. It stops scheduling once ctx is done and returns ctx.Err().
func (e *Engine) forEach(ctx context.Context, n int, opts core.ProcessOptions, fn func(i int)) error {
	workers := e.concurrency(opts)
	if workers <= 1 {
		for i := range n {
			if ctx.Err() != nil {
				break
			}
			fn(i)
		}
		return ctx.Err()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// =============================================================================
// Linting
// =============================================================================

func (r *vaultRun) lintOne(rel string) *fileOutcome {
	out := &fileOutcome{path: rel, renameFix: -1}
	logger := r.logger.With("file", rel)

	for _, rule := range r.rules {
		if rule.ShouldApplyToFile(rel) {
			out.rules = append(out.rules, rule)
		}
	}
	if len(out.rules) == 0 {
		return out
	}

	data, err := afero.ReadFile(r.engine.fs, abs(r.root, rel))
	if err != nil {
		out.errors = append(out.errors, core.ProcessingError{File: rel, Stage: core.StageRead, Message: err.Error()})
		return out
	}
	out.content = string(data)
	out.readOK = true

	doc, err := r.engine.parser.Parse(rel, data)
	if err != nil {
		out.errors = append(out.errors, core.ProcessingError{File: rel, Stage: core.StageParse, Message: err.Error()})
		return out
	}
	ctx := r.context(doc)

	for _, rule := range out.rules {
		issues, err := safeLint(rule, ctx)
		if err != nil {
			logger.Debug("rule failed", "rule", rule.ID().Full, "error", err)
			out.errors = append(out.errors, core.ProcessingError{
				File:    rel,
				RuleID:  rule.ID().Full,
				Stage:   core.StageLint,
				Message: err.Error(),
			})
			continue
		}
		out.issues = append(out.issues, issues...)
	}
	return out
}

func (r *vaultRun) context(doc *core.ParsedDocument) *lint.Context {
	return &lint.Context{
		File:      doc,
		VaultPath: r.root,
		DryRun:    r.opts.DryRun,
		Verbose:   r.opts.Verbose,
		Metadata:  map[string]any{},
	}
}

// safeLint runs a rule, turning a panic into an error.
func safeLint(rule lint.Rule, ctx *lint.Context) (issues []core.Issue, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rule panicked: %v", p)
		}
	}()
	return rule.Lint(ctx)
}

func safeFix(rule lint.FixableRule, ctx *lint.Context, issues []core.Issue) (fixes []core.Fix, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("fix panicked: %v", p)
		}
	}()
	return rule.Fix(ctx, issues)
}

// progress serializes progress callbacks.
type progress struct {
	mu    sync.Mutex
	done  int
	total int
	fn    core.ProgressFunc
}

func newProgress(total int, fn core.ProgressFunc) *progress {
	return &progress{total: total, fn: fn}
}

func (p *progress) step(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.fn != nil {
		p.fn(p.done, p.total, message)
	}
}

// =============================================================================
// Fixing
// =============================================================================

// fixOne re-derives the document before every fixable rule, applies that
// rule's changes to the in-memory content and finally writes the file once.
// A rule whose changes cannot be applied is skipped for this file.
func (r *vaultRun) fixOne(out *fileOutcome) {
	content := out.content
	current := out.path

	for _, rule := range out.rules {
		fixable, ok := lint.AsFixable(rule)
		if !ok {
			continue
		}
		id := rule.ID().Full

		doc, err := r.engine.parser.Parse(current, []byte(content))
		if err != nil {
			out.fixErrors = append(out.fixErrors, core.ProcessingError{File: out.path, RuleID: id, Stage: core.StageFix, Message: err.Error()})
			break
		}
		ctx := r.context(doc)
		issues, err := safeLint(rule, ctx)
		if err != nil {
			out.fixErrors = append(out.fixErrors, core.ProcessingError{File: out.path, RuleID: id, Stage: core.StageFix, Message: err.Error()})
			continue
		}
		var pending []core.Issue
		for _, is := range issues {
			if is.Fixable {
				pending = append(pending, is)
			}
		}
		if len(pending) == 0 {
			continue
		}
		fixes, err := safeFix(fixable, ctx, pending)
		if err != nil {
			out.fixErrors = append(out.fixErrors, core.ProcessingError{File: out.path, RuleID: id, Stage: core.StageFix, Message: err.Error()})
			continue
		}

		next, nextPath, renameIdx, err := applyRuleFixes(content, current, fixes)
		if err != nil {
			fae := &core.FixApplicationError{File: out.path, RuleID: id, Reason: err.Error()}
			r.logger.Debug("fix discarded", "file", out.path, "rule", id, "reason", err)
			out.fixErrors = append(out.fixErrors, core.ProcessingError{File: out.path, RuleID: id, Stage: core.StageFix, Message: fae.Error()})
			continue
		}
		if renameIdx >= 0 {
			out.renameFix = len(out.fixes) + renameIdx
		}
		for i := range fixes {
			fixes[i].File = out.path
		}
		out.fixes = append(out.fixes, fixes...)
		content, current = next, nextPath
	}

	out.newText = content
	if current != out.path {
		out.renameTo = current
	}

	if r.opts.DryRun || content == out.content {
		return
	}
	if err := r.engine.writeFile(r.root, out.path, out.content, content, r.opts.Backup); err != nil {
		if errors.Is(err, errChangedOnDisk) {
			r.logger.Warn("fixes discarded", "file", out.path, "reason", err)
			for _, id := range fixRuleIDs(out.fixes) {
				fae := &core.FixApplicationError{File: out.path, RuleID: id, Reason: err.Error()}
				out.fixErrors = append(out.fixErrors, core.ProcessingError{File: out.path, RuleID: id, Stage: core.StageFix, Message: fae.Error()})
			}
		} else {
			out.fixErrors = append(out.fixErrors, core.ProcessingError{File: out.path, Stage: core.StageWrite, Message: err.Error()})
		}
		out.fixes = nil
		out.renameTo = ""
		out.renameFix = -1
	}
}

// fixRuleIDs lists the distinct rule ids of fixes in order.
func fixRuleIDs(fixes []core.Fix) []string {
	var ids []string
	seen := make(map[string]bool, len(fixes))
	for _, f := range fixes {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	return ids
}

// applyRuleFixes applies one rule's fixes in order. All or nothing.
func applyRuleFixes(content, current string, fixes []core.Fix) (string, string, int, error) {
	renameIdx := -1
	for i, f := range fixes {
		next, rename, err := lint.ApplyChanges(content, f.Changes)
		if err != nil {
			return "", "", -1, err
		}
		content = next
		if rename != "" && rename != current {
			current = rename
			renameIdx = i
		}
	}
	return content, current, renameIdx, nil
}

// commitRenames performs renames in file order. The set of occupied paths is
// tracked virtually so dry runs make the same decisions as real runs.
func (r *vaultRun) commitRenames(outcomes []*fileOutcome) {
	occupied := make(map[string]bool, len(outcomes))
	for _, out := range outcomes {
		if out != nil {
			occupied[out.path] = true
		}
	}

	for _, out := range outcomes {
		if out == nil || out.renameTo == "" {
			continue
		}
		target := out.renameTo
		reason := ""
		if occupied[target] {
			reason = "rename target " + target + " exists"
		} else if ok, err := r.engine.exists(r.root, target); err != nil {
			reason = err.Error()
		} else if ok {
			reason = "rename target " + target + " exists"
		}

		if reason == "" && !r.opts.DryRun {
			// The content on disk is what fixOne wrote, or the linted snapshot
			// when no content fix applied.
			if err := r.engine.verifyUnchanged(r.root, out.path, out.newText); err != nil {
				reason = err.Error()
			} else if err := r.engine.rename(r.root, out.path, target); err != nil {
				reason = err.Error()
			}
		}
		if reason != "" {
			r.refuseRename(out, reason)
			continue
		}
		delete(occupied, out.path)
		occupied[target] = true
	}
}

func (r *vaultRun) refuseRename(out *fileOutcome, reason string) {
	if out.renameFix >= 0 && out.renameFix < len(out.fixes) {
		f := out.fixes[out.renameFix]
		fae := &core.FixApplicationError{File: out.path, RuleID: f.RuleID, Reason: reason}
		out.fixErrors = append(out.fixErrors, core.ProcessingError{File: out.path, RuleID: f.RuleID, Stage: core.StageFix, Message: fae.Error()})
		out.fixes = append(out.fixes[:out.renameFix:out.renameFix], out.fixes[out.renameFix+1:]...)
	}
	out.renameTo = ""
	out.renameFix = -1
}

// finalPaths lists the vault-relative paths of all discovered files after
// renames.
func finalPaths(outcomes []*fileOutcome) []string {
	paths := make([]string, 0, len(outcomes))
	for _, out := range outcomes {
		if out == nil {
			continue
		}
		if out.renameTo != "" {
			paths = append(paths, out.renameTo)
			continue
		}
		paths = append(paths, out.path)
	}
	return paths
}

package lint

import (
	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// Context is the read-only execution context handed to rules.
type Context struct {
	File      *core.ParsedDocument
	VaultPath string
	DryRun    bool
	Verbose   bool
	Metadata  map[string]any
}

// Rule is the base interface all rule variants implement.
type Rule interface {
	// ID returns the variant identity, e.g. file-naming.kebab-case
	ID() core.RuleID

	// Name returns the human-readable name
	Name() string

	// Description returns a human-readable description
	Description() string

	// Category groups rules for listings, e.g. "metadata", "structure"
	Category() string

	// Config returns the rule's immutable applicability configuration
	Config() RuleConfig

	// ShouldApplyToFile reports whether the rule applies to a vault-relative path.
	ShouldApplyToFile(path string) bool

	// Lint inspects a document and returns issues. It must not write anything.
	Lint(ctx *Context) ([]core.Issue, error)
}

// FixableRule is a Rule that can also describe edits for its own issues.
// Writing the edits is the orchestrator's job.
type FixableRule interface {
	Rule
	Fix(ctx *Context, issues []core.Issue) ([]core.Fix, error)
}

// AsFixable returns the rule as a FixableRule when it carries a fix.
func AsFixable(r Rule) (FixableRule, bool) {
	f, ok := r.(FixableRule)
	return f, ok
}

// IsFixable reports whether r can produce fixes.
func IsFixable(r Rule) bool {
	_, ok := AsFixable(r)
	return ok
}

// =============================================================================
// Data-driven rule definitions
// =============================================================================

// CheckFunc inspects a document for one rule variant.
type CheckFunc func(ctx *Context) ([]core.Issue, error)

// RepairFunc describes fixes for previously reported issues.
type RepairFunc func(ctx *Context, issues []core.Issue) ([]core.Fix, error)

// Def is a data-driven rule variant definition.
// Families build a Def per instance and turn it into a Rule with New.
type Def struct {
	ID          core.RuleID
	Name        string
	Description string
	Category    string
	Config      RuleConfig
	Check       CheckFunc
	Repair      RepairFunc // nil for lint-only variants
}

// New builds a Rule from a Def. The concrete type depends on whether the
// definition carries a Repair function: only fixable rules expose Fix.
func New(def Def) (Rule, error) {
	if err := def.Config.Validate(); err != nil {
		return nil, &core.RuleConfigError{ID: def.ID.Full, Err: err}
	}
	base := baseRule{def: def, cfg: def.Config.clone()}
	if def.Repair == nil {
		return &lintOnlyRule{baseRule: base}, nil
	}
	return &fixableRule{baseRule: base}, nil
}

type baseRule struct {
	def Def
	cfg RuleConfig
}

func (b *baseRule) ID() core.RuleID     { return b.def.ID }
func (b *baseRule) Name() string        { return b.def.Name }
func (b *baseRule) Description() string { return b.def.Description }
func (b *baseRule) Category() string    { return b.def.Category }
func (b *baseRule) Config() RuleConfig  { return b.cfg.clone() }

func (b *baseRule) ShouldApplyToFile(path string) bool {
	return ShouldApply(b.cfg, path)
}

func (b *baseRule) check(ctx *Context, fixable bool) ([]core.Issue, error) {
	issues, err := b.def.Check(ctx)
	if err != nil {
		return nil, err
	}
	for i := range issues {
		issues[i].RuleID = b.def.ID.Full
		if ctx != nil && ctx.File != nil && issues[i].File == "" {
			issues[i].File = ctx.File.Path
		}
		issues[i].Fixable = fixable && issues[i].Fixable
	}
	return issues, nil
}

// lintOnlyRule never reports fixable issues.
type lintOnlyRule struct {
	baseRule
}

func (r *lintOnlyRule) Lint(ctx *Context) ([]core.Issue, error) {
	return r.check(ctx, false)
}

type fixableRule struct {
	baseRule
}

func (r *fixableRule) Lint(ctx *Context) ([]core.Issue, error) {
	return r.check(ctx, true)
}

func (r *fixableRule) Fix(ctx *Context, issues []core.Issue) ([]core.Fix, error) {
	fixes, err := r.def.Repair(ctx, issues)
	if err != nil {
		return nil, err
	}
	for i := range fixes {
		fixes[i].RuleID = r.def.ID.Full
		if ctx != nil && ctx.File != nil && fixes[i].File == "" {
			fixes[i].File = ctx.File.Path
		}
	}
	return fixes, nil
}

// =============================================================================
// Rule metadata
// =============================================================================

// RuleInfo describes a loaded rule for listings and JSON output.
type RuleInfo struct {
	ID          string `json:"id"`
	Family      string `json:"family"`
	Variant     string `json:"variant"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Fixable     bool   `json:"fixable"`
}

// GetRuleInfo extracts metadata from a Rule.
func GetRuleInfo(r Rule) RuleInfo {
	id := r.ID()
	return RuleInfo{
		ID:          id.Full,
		Family:      id.Major,
		Variant:     id.Minor,
		Name:        r.Name(),
		Category:    r.Category(),
		Description: r.Description(),
		Fixable:     IsFixable(r),
	}
}

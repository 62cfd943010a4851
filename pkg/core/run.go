package core

import (
	"cmp"
	"slices"
	"time"
)

// ProcessOptions controls a single orchestrator run.
type ProcessOptions struct {
	DryRun  bool
	Fix     bool
	Verbose bool

	// Rules restricts the run to these full rule ids; nil means all loaded rules.
	Rules []string
	// Ignore holds vault-relative globs excluded from discovery.
	Ignore []string

	GenerateMOC    bool
	Parallel       bool
	MaxConcurrency int // 0 selects the engine default

	// Backup copies a file's original content aside before it is rewritten.
	Backup bool
}

// ProgressFunc receives one notification per completed file.
// current is strictly increasing and never exceeds total.
type ProgressFunc func(current, total int, message string)

// Stage names where a per-file error happened.
type Stage string

// Processing stages.
const (
	StageDiscover Stage = "discover"
	StageRead     Stage = "read"
	StageParse    Stage = "parse"
	StageLint     Stage = "lint"
	StageFix      Stage = "fix"
	StageWrite    Stage = "write"
	StageMOC      Stage = "moc"
)

// ProcessingError is a recovered, non-fatal error tied to one file.
type ProcessingError struct {
	File    string `json:"file"`
	RuleID  string `json:"rule_id,omitempty"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

func (e ProcessingError) Error() string {
	if e.RuleID != "" {
		return string(e.Stage) + " " + e.File + " [" + e.RuleID + "]: " + e.Message
	}
	return string(e.Stage) + " " + e.File + ": " + e.Message
}

// LintResult is the outcome of one run. It is owned by the caller.
type LintResult struct {
	RunID          string            `json:"run_id"`
	FilesProcessed int               `json:"files_processed"`
	IssuesFound    []Issue           `json:"issues_found"`
	FixesApplied   []Fix             `json:"fixes_applied"`
	Errors         []ProcessingError `json:"errors"`
	Duration       time.Duration     `json:"duration"`
}

// HasIssues reports whether the run found any issue.
func (r *LintResult) HasIssues() bool {
	return r != nil && len(r.IssuesFound) > 0
}

// ExitCode follows the CLI convention: 0 without issues, 1 otherwise.
func (r *LintResult) ExitCode() int {
	if r.HasIssues() {
		return 1
	}
	return 0
}

// Normalize sorts every collection and replaces nil slices with empty ones.
func (r *LintResult) Normalize() {
	if r.IssuesFound == nil {
		r.IssuesFound = []Issue{}
	}
	if r.FixesApplied == nil {
		r.FixesApplied = []Fix{}
	}
	if r.Errors == nil {
		r.Errors = []ProcessingError{}
	}
	SortIssues(r.IssuesFound)
	SortFixes(r.FixesApplied)
	slices.SortStableFunc(r.Errors, func(a, b ProcessingError) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Stage, b.Stage),
			cmp.Compare(a.RuleID, b.RuleID),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

// CountBySeverity tallies issues per severity.
func (r *LintResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	if r == nil {
		return counts
	}
	for _, i := range r.IssuesFound {
		counts[i.Severity]++
	}
	return counts
}

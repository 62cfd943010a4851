package output

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// LintSummary holds counts for a lint run.
type LintSummary struct {
	FilesProcessed   int   `json:"files_processed"`
	TotalIssues      int   `json:"total_issues"`
	Errors           int   `json:"errors"`
	Warnings         int   `json:"warnings"`
	Info             int   `json:"info"`
	Fixable          int   `json:"fixable"`
	FixesApplied     int   `json:"fixes_applied"`
	ProcessingErrors int   `json:"processing_errors"`
	DurationMS       int64 `json:"duration_ms"`
}

// LintOutput is the JSON document written by the lint command.
type LintOutput struct {
	RunID   string                 `json:"run_id"`
	DryRun  bool                   `json:"dry_run"`
	Summary LintSummary            `json:"summary"`
	Issues  []core.Issue           `json:"issues"`
	Fixes   []core.Fix             `json:"fixes"`
	Errors  []core.ProcessingError `json:"errors"`
}

// Summarize counts the issues, fixes and errors of a result.
func Summarize(res *core.LintResult) LintSummary {
	counts := res.CountBySeverity()
	s := LintSummary{
		FilesProcessed:   res.FilesProcessed,
		TotalIssues:      len(res.IssuesFound),
		Errors:           counts[core.SeverityError],
		Warnings:         counts[core.SeverityWarning],
		Info:             counts[core.SeverityInfo],
		FixesApplied:     len(res.FixesApplied),
		ProcessingErrors: len(res.Errors),
		DurationMS:       res.Duration.Milliseconds(),
	}
	for _, i := range res.IssuesFound {
		if i.Fixable {
			s.Fixable++
		}
	}
	return s
}

// LintResult renders a lint run. dryRun changes the wording of fixes.
func (r *Renderer) LintResult(res *core.LintResult, dryRun bool) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(LintOutput{
			RunID:   res.RunID,
			DryRun:  dryRun,
			Summary: Summarize(res),
			Issues:  res.IssuesFound,
			Fixes:   res.FixesApplied,
			Errors:  res.Errors,
		})
	case ModeMarkdown:
		r.lintMarkdown(res, dryRun)
	default:
		r.lintText(res, dryRun)
	}
	return nil
}

func (r *Renderer) lintText(res *core.LintResult, dryRun bool) {
	st := r.styles

	current := ""
	for _, i := range res.IssuesFound {
		if i.File != current {
			if current != "" {
				r.Println()
			}
			current = i.File
			r.Println(st.Path.Render(i.File))
		}
		suffix := r.Muted(i.RuleID)
		if i.Fixable {
			suffix += r.Muted(" (fixable)")
		}
		r.Printf("  %-8s %s  %s  %s\n",
			location(i), st.Severity(i.Severity).Render(fmt.Sprintf("%-7s", i.Severity)), i.Message, suffix)
	}
	if len(res.IssuesFound) > 0 {
		r.Println()
	}

	if len(res.FixesApplied) > 0 {
		r.Println(st.Bold.Render(fixesTitle(len(res.FixesApplied), dryRun)))
		for _, f := range res.FixesApplied {
			r.Printf("  %s: %s %s\n", f.File, f.Description, r.Muted("["+f.RuleID+"]"))
		}
		r.Println()
	}

	if len(res.Errors) > 0 {
		r.Println(st.Error.Render(fmt.Sprintf("%d file(s) could not be processed:", len(res.Errors))))
		for _, e := range res.Errors {
			r.Printf("  %s\n", e.Error())
		}
		r.Println()
	}

	s := Summarize(res)
	if s.TotalIssues == 0 {
		r.Success(fmt.Sprintf("No issues found in %d file(s)", s.FilesProcessed))
		return
	}
	r.Println(summaryLine(s))
}

func (r *Renderer) lintMarkdown(res *core.LintResult, dryRun bool) {
	s := Summarize(res)
	r.Printf("# Lint results\n\n%s\n", summaryLine(s))

	if len(res.IssuesFound) > 0 {
		current := ""
		for _, i := range res.IssuesFound {
			if i.File != current {
				current = i.File
				r.Printf("\n### %s\n\n", i.File)
			}
			fixable := ""
			if i.Fixable {
				fixable = " (fixable)"
			}
			r.Printf("- **%s** `%s` %s (`%s`)%s\n", i.Severity, location(i), i.Message, i.RuleID, fixable)
		}
	}

	if len(res.FixesApplied) > 0 {
		r.Printf("\n## %s\n\n", fixesTitle(len(res.FixesApplied), dryRun))
		for _, f := range res.FixesApplied {
			r.Printf("- `%s`: %s (`%s`)\n", f.File, f.Description, f.RuleID)
		}
	}

	if len(res.Errors) > 0 {
		r.Printf("\n## Errors\n\n")
		for _, e := range res.Errors {
			r.Printf("- %s\n", e.Error())
		}
	}
}

func location(i core.Issue) string {
	if i.Line == 0 {
		return "-"
	}
	if i.Column == 0 {
		return fmt.Sprintf("%d", i.Line)
	}
	return fmt.Sprintf("%d:%d", i.Line, i.Column)
}

func fixesTitle(n int, dryRun bool) string {
	if dryRun {
		return fmt.Sprintf("Would apply %d fix(es):", n)
	}
	return fmt.Sprintf("Applied %d fix(es):", n)
}

func summaryLine(s LintSummary) string {
	parts := []string{
		fmt.Sprintf("%d error(s)", s.Errors),
		fmt.Sprintf("%d warning(s)", s.Warnings),
	}
	if s.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", s.Info))
	}
	return fmt.Sprintf("%d issue(s) in %d file(s): %s; %d fixable",
		s.TotalIssues, s.FilesProcessed, strings.Join(parts, ", "), s.Fixable)
}

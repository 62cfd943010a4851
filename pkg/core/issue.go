package core

import (
	"cmp"
	"slices"
)

// =============================================================================
// Issues
// =============================================================================

// Issue is a single lint finding.
// Fixable is true only if the rule that produced it can also produce a Fix.
type Issue struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`   // 1-based; 0 when unknown
	Column   int      `json:"column,omitempty"` // 1-based; 0 when unknown
	Fixable  bool     `json:"fixable"`
}

// =============================================================================
// Fixes
// =============================================================================

// ChangeKind is the kind of edit a FileChange describes.
type ChangeKind string

// Change kinds.
const (
	// ChangeEdit replaces the byte range [Start, End) with NewText.
	ChangeEdit ChangeKind = "edit"
	// ChangeReplace replaces the whole content with NewText.
	ChangeReplace ChangeKind = "replace"
	// ChangeRename moves the file to NewPath (vault-relative).
	ChangeRename ChangeKind = "rename"
)

// FileChange is an atomic edit applied to one file.
type FileChange struct {
	Kind    ChangeKind `json:"kind"`
	Start   int        `json:"start,omitempty"`
	End     int        `json:"end,omitempty"`
	NewText string     `json:"new_text,omitempty"`
	NewPath string     `json:"new_path,omitempty"`
	// Expected, when set on an edit, must equal the current text of the
	// range; a mismatch means the range went stale and the change is refused.
	Expected string `json:"expected,omitempty"`
}

// Fix groups the changes a rule proposes for one file.
type Fix struct {
	RuleID      string       `json:"rule_id"`
	File        string       `json:"file"`
	Description string       `json:"description"`
	Changes     []FileChange `json:"changes"`
}

// Insert returns an edit inserting text at offset.
func Insert(offset int, text string) FileChange {
	return FileChange{Kind: ChangeEdit, Start: offset, End: offset, NewText: text}
}

// ReplaceRange returns an edit replacing r; expected guards against stale ranges.
func ReplaceRange(r Range, expected, text string) FileChange {
	return FileChange{Kind: ChangeEdit, Start: r.Start, End: r.End, NewText: text, Expected: expected}
}

// ReplaceContent returns a whole-content replacement.
func ReplaceContent(text string) FileChange {
	return FileChange{Kind: ChangeReplace, NewText: text}
}

// Rename returns a rename to the vault-relative newPath.
func Rename(newPath string) FileChange {
	return FileChange{Kind: ChangeRename, NewPath: newPath}
}

// HasFixable reports whether any issue is fixable.
func HasFixable(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Fixable })
}

// SortIssues orders issues by file, line, column, rule and message so that
// results are stable regardless of scheduling order.
func SortIssues(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.RuleID, b.RuleID),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

// SortFixes orders fixes by file, rule and description.
func SortFixes(fixes []Fix) {
	slices.SortStableFunc(fixes, func(a, b Fix) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.RuleID, b.RuleID),
			cmp.Compare(a.Description, b.Description),
		)
	})
}

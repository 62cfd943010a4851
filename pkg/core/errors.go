package core

import (
	"fmt"
	"strings"
)

// ConfigurationError is fatal: missing or unreadable configuration, an unknown
// profile, an unreadable vault root or an unknown requested rule id.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// RuleNotFoundError is returned when no rule family recognizes a declared id.
type RuleNotFoundError struct {
	ID        string
	Available []string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("unknown rule %q\nAvailable rules: %s", e.ID, strings.Join(e.Available, ", "))
}

// RuleConfigError is returned when a rule declaration fails validation.
type RuleConfigError struct {
	Source string // declaration file, if any
	ID     string
	Err    error
}

func (e *RuleConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid rule configuration")
	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " (%s)", e.ID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *RuleConfigError) Unwrap() error { return e.Err }

// ConflictError is returned when a profile enables more than one variant of a
// family and the conflict policy rejects the profile.
type ConflictError struct {
	Families []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting rule variants enabled for: %s\nHint: enable one variant per family or set general.conflict_policy: first-wins", strings.Join(e.Families, ", "))
}

// FixApplicationError is recorded when a FileChange cannot be applied.
type FixApplicationError struct {
	File   string
	RuleID string
	Reason string
}

func (e *FixApplicationError) Error() string {
	return fmt.Sprintf("cannot apply fix from %s to %s: %s", e.RuleID, e.File, e.Reason)
}

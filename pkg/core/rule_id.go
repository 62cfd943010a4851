package core

import (
	"fmt"
	"strings"
)

// RuleID identifies a rule variant.
// Major names the rule family (e.g. "file-naming"), Minor the variant policy
// within it (e.g. "kebab-case"). Full is always Major + "." + Minor.
type RuleID struct {
	Major string `json:"major"`
	Minor string `json:"minor"`
	Full  string `json:"full"`
}

// NewRuleID builds a RuleID from its parts.
func NewRuleID(major, minor string) RuleID {
	return RuleID{Major: major, Minor: minor, Full: major + "." + minor}
}

// ParseRuleID splits a full id on its first dot.
func ParseRuleID(full string) (RuleID, error) {
	full = strings.TrimSpace(full)
	major, minor, ok := strings.Cut(full, ".")
	if !ok || major == "" || minor == "" {
		return RuleID{}, fmt.Errorf("invalid rule id %q: expected <family>.<variant>", full)
	}
	return NewRuleID(major, minor), nil
}

// String returns the full id.
func (id RuleID) String() string {
	return id.Full
}

// IsZero reports whether the id is unset.
func (id RuleID) IsZero() bool {
	return id.Full == ""
}

package lint

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// ConflictPolicy decides what happens when a family has several enabled variants.
type ConflictPolicy string

// Conflict policies.
const (
	PolicyReject    ConflictPolicy = "reject"
	PolicyFirstWins ConflictPolicy = "first-wins"
)

// ParseConflictPolicy converts a config value to a ConflictPolicy.
// An empty value selects PolicyReject.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyFirstWins:
		return PolicyFirstWins, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want %q or %q)", s, PolicyReject, PolicyFirstWins)
	}
}

// ConflictOptions configures ValidateRuleConflicts.
type ConflictOptions struct {
	Policy ConflictPolicy
	// RequiredFamilies are majors a profile is expected to cover.
	RequiredFamilies []string
}

// Conflict is one family with more than one enabled variant.
type Conflict struct {
	MajorID    string   `json:"major_id"`
	Members    []string `json:"members"` // full ids in load order
	Resolution string   `json:"resolution"`
}

// Warning is a non-fatal profile observation.
type Warning struct {
	MajorID string `json:"major_id"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of conflict validation.
type ValidationResult struct {
	Valid     bool       `json:"valid"`
	Conflicts []Conflict `json:"conflicts"`
	Warnings  []Warning  `json:"warnings"`
}

// ValidateRuleConflicts groups rules by family and reports every family with
// more than one member. It does not modify rules.
func ValidateRuleConflicts(rules []Rule, opts ConflictOptions) ValidationResult {
	var order []string
	groups := make(map[string][]string)
	for _, r := range rules {
		major := r.ID().Major
		if _, seen := groups[major]; !seen {
			order = append(order, major)
		}
		groups[major] = append(groups[major], r.ID().Full)
	}

	result := ValidationResult{
		Conflicts: []Conflict{},
		Warnings:  []Warning{},
	}
	for _, major := range order {
		members := groups[major]
		if len(members) < 2 {
			continue
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			MajorID:    major,
			Members:    slices.Clone(members),
			Resolution: resolution(opts.Policy, members[0]),
		})
	}

	for _, major := range opts.RequiredFamilies {
		if _, ok := groups[major]; ok {
			continue
		}
		result.Warnings = append(result.Warnings, Warning{
			MajorID: major,
			Message: fmt.Sprintf("required family %q has no enabled variant", major),
		})
	}

	result.Valid = len(result.Conflicts) == 0
	return result
}

func resolution(policy ConflictPolicy, first string) string {
	if policy == PolicyFirstWins {
		return "first-loaded wins: " + first
	}
	return "reject profile"
}

// ResolveConflicts applies policy to a validation result. Under PolicyReject
// any conflict is a ConflictError; under PolicyFirstWins later members of
// each conflicting family are dropped. The returned slice is new.
func ResolveConflicts(rules []Rule, result ValidationResult, policy ConflictPolicy) ([]Rule, error) {
	if len(result.Conflicts) == 0 {
		return slices.Clone(rules), nil
	}
	if policy != PolicyFirstWins {
		majors := make([]string, len(result.Conflicts))
		for i, c := range result.Conflicts {
			majors[i] = c.MajorID
		}
		return nil, &core.ConflictError{Families: majors}
	}

	drop := make(map[string]bool)
	for _, c := range result.Conflicts {
		for _, id := range c.Members[1:] {
			drop[id] = true
		}
	}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !drop[r.ID().Full] {
			out = append(out, r)
		}
	}
	return out, nil
}

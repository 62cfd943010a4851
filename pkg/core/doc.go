// Package core defines the shared language of the vaultlint system.
//
// This package contains:
//   - Rule identity (RuleID) and Severity
//   - The parsed document value consumed by rules (ParsedDocument)
//   - Lint output values (Issue, Fix, FileChange, LintResult)
//   - Run options and the typed errors surfaced to callers
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

// Package lint provides the rule catalog of vaultlint.
//
// # Architecture
//
// The package has three layers:
//
//  1. Contracts (rule.go): Rule, FixableRule and the Def helper that builds a
//     rule from a check function and an optional repair function
//  2. Catalog (registry.go, loader.go): the family registry and the loader
//     that turns a profile's declaration files into a Catalog
//  3. Policy (conflicts.go, pathfilter.go, apply.go): conflict detection and
//     resolution, path applicability, and all-or-nothing fix application
//
// # Rule Identity
//
// Every rule variant has a full id of the form <family>.<variant>, for
// example "file-naming.kebab-case". A profile may enable at most one variant
// of a family. ValidateRuleConflicts reports families with several variants;
// ResolveConflicts rejects the profile or keeps the first-loaded variant.
//
// # Rule Registration
//
// Families register a factory from init() functions:
//
//	func init() {
//		lint.Register(lint.Family{
//			Major:    "file-naming",
//			Variants: []string{"kebab-case", "snake-case"},
//			New:      newRule,
//		})
//	}
//
// Import the built-in families with a blank identifier:
//
//	import _ "github.com/leapstack-labs/vaultlint/pkg/lint/rules"
//
// # Declarations
//
// A profile's rules_path holds one YAML declaration per variant:
//
//	id: file-naming.kebab-case
//	config:
//	  path_denylist: ["daily/**"]
//	  settings:
//	    extensions: [.md]
//
// Path filters are evaluated by ShouldApply; a denylist match always wins.
// Family settings are decoded with DecodeSettings.
package lint

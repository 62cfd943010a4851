package rules

// Import all rule family packages to register them with the family registry.
// This file triggers all init() functions in the rule packages.
import (
	_ "github.com/leapstack-labs/vaultlint/pkg/lint/rules/attachments"
	_ "github.com/leapstack-labs/vaultlint/pkg/lint/rules/frontmatter"
	_ "github.com/leapstack-labs/vaultlint/pkg/lint/rules/html"
	_ "github.com/leapstack-labs/vaultlint/pkg/lint/rules/naming"
)

// Package rules registers every built-in rule family.
//
// Families live in their own packages:
//   - frontmatter: frontmatter-required-fields (strict, advisory)
//   - naming: file-naming (kebab-case, snake-case, camel-case, pascal-case)
//   - attachments: attachment-organization (centralized, by-type)
//   - html: inline-html (forbid, convert)
//
// To register all families with the lint registry, import this package
// with a blank identifier:
//
//	import _ "github.com/leapstack-labs/vaultlint/pkg/lint/rules"
package rules

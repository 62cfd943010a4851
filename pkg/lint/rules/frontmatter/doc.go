// Package frontmatter provides the frontmatter-required-fields rule family.
//
// Variants:
//   - strict: missing fields are errors; the fix inserts configured defaults
//   - advisory: missing fields are warnings; lint only
package frontmatter

// Package html provides the inline-html rule family.
//
// Variants:
//   - forbid: report HTML tags in note bodies
//   - convert: report them and convert each HTML fragment to Markdown
//
// Tags inside code blocks, inline code and frontmatter are ignored, as are
// tags listed in the allowed_tags setting.
package html

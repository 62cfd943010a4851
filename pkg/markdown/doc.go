// Package markdown parses vault notes into core.ParsedDocument values.
//
// It understands the subset of Obsidian-flavoured Markdown the rules need:
// a leading YAML frontmatter block, ATX headings, wikilinks and embeds,
// Markdown links and images, and fenced code blocks and inline code spans
// (which are skipped when collecting links).
package markdown

// Package attachments provides the attachment-organization rule family.
//
// The rule runs on attachment files themselves (images, PDFs, media) and
// moves misplaced ones into the configured attachments directory. Notes are
// never rewritten; wikilink embeds resolve by file name and keep working.
package attachments

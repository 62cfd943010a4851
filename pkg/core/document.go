package core

// =============================================================================
// Parsed Document
// =============================================================================

// ParsedDocument is the read-only view of a vault file handed to rules.
// It is produced by a parser collaborator and never mutated by rules.
type ParsedDocument struct {
	Path    string // Vault-relative, forward-slash path
	Content string // Raw file content

	// Frontmatter is the decoded metadata block; nil when absent.
	Frontmatter    map[string]any
	HasFrontmatter bool
	// FrontmatterRange covers the whole block including both fences.
	FrontmatterRange Range
	// FrontmatterBody covers only the YAML between the fences.
	FrontmatterBody Range

	Headings    []Heading
	Links       []Link
	Attachments []Attachment
	Tree        *Section

	// Code holds the byte ranges of fenced code blocks and inline code spans.
	Code []Range
}

// InCode reports whether offset falls inside a code block or span.
func (d *ParsedDocument) InCode(offset int) bool {
	for _, r := range d.Code {
		if offset >= r.Start && offset < r.End {
			return true
		}
	}
	return false
}

// PositionAt converts a byte offset into a 1-based line/column position.
// Offsets past the end clamp to the end of content.
func PositionAt(content string, offset int) Position {
	if offset > len(content) {
		offset = len(content)
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return Position{Line: line, Column: col}
}

// Range is a half-open byte range [Start, End) into a document's content.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Position is a 1-based line/column location.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Heading is an ATX heading.
type Heading struct {
	Level int
	Text  string
	Pos   Position
}

// LinkKind distinguishes link syntaxes.
type LinkKind string

// Link kinds.
const (
	LinkWiki     LinkKind = "wiki"     // [[target|alias]]
	LinkMarkdown LinkKind = "markdown" // [text](target)
)

// Link is an outgoing reference to another note or URL.
type Link struct {
	Kind   LinkKind
	Target string
	Text   string
	Pos    Position
	Span   Range
}

// Attachment is an embedded file reference (![[file]] or ![alt](file)).
type Attachment struct {
	Kind   LinkKind
	Target string
	Pos    Position
	Span   Range
}

// Section is a node of the content tree. The root section has Level 0
// and no heading; children are nested by heading level.
type Section struct {
	Level    int
	Title    string
	Span     Range
	Children []*Section
}

// Walk visits the section and its descendants depth-first.
func (s *Section) Walk(fn func(*Section)) {
	if s == nil {
		return
	}
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}

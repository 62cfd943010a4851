package markdown

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// markdownExts are the extensions parsed as notes. Other files yield a
// document carrying only Path and Content.
var markdownExts = map[string]bool{
	".md":       true,
	".markdown": true,
}

var (
	headingPattern = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?[ \t]*$`)
	fencePattern   = regexp.MustCompile("^ {0,3}(```+|~~~+)")
	// linkPattern matches [[wiki]], ![[embed]], [text](target) and ![alt](target).
	linkPattern = regexp.MustCompile(`(!?)\[\[([^\[\]\n]+?)\]\]|(!?)\[([^\[\]\n]*)\]\(<?([^()<>\s]+)>?(?:\s+"[^"\n]*")?\)`)
	inlineCode  = regexp.MustCompile("`+[^`\n]*`+")
)

// Parser turns file content into a core.ParsedDocument.
// The zero value is ready to use and safe for concurrent use.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse parses content read from the vault-relative path.
func (p *Parser) Parse(path string, content []byte) (*core.ParsedDocument, error) {
	return Parse(path, content)
}

// IsMarkdown reports whether path names a note the parser understands.
func IsMarkdown(p string) bool {
	return markdownExts[strings.ToLower(filepath.Ext(p))]
}

// Parse parses content read from the vault-relative path.
func Parse(p string, content []byte) (*core.ParsedDocument, error) {
	doc := &core.ParsedDocument{
		Path:    filepath.ToSlash(p),
		Content: string(content),
	}
	if !IsMarkdown(p) {
		return doc, nil
	}

	text := doc.Content
	bodyStart := 0
	if fm := findFrontmatter(text); fm.found {
		data, err := decodeFrontmatter(doc.Path, text[fm.body.Start:fm.body.End])
		if err != nil {
			return nil, err
		}
		doc.HasFrontmatter = true
		doc.Frontmatter = data
		doc.FrontmatterRange = fm.block
		doc.FrontmatterBody = fm.body
		bodyStart = fm.block.End
	}

	s := &scanner{doc: doc, text: text}
	s.scan(bodyStart)
	return doc, nil
}

// scanner walks the body line by line.
type scanner struct {
	doc  *core.ParsedDocument
	text string

	fence      string // open fence marker, "" when outside a code block
	fenceStart int

	stack []*core.Section
}

func (s *scanner) scan(start int) {
	root := &core.Section{Level: 0, Span: core.Range{Start: 0, End: len(s.text)}}
	s.doc.Tree = root
	s.stack = []*core.Section{root}

	lineNo := 1 + strings.Count(s.text[:start], "\n")
	offset := start
	for offset < len(s.text) {
		line, _, hasNext := cutLine(s.text[offset:])
		s.line(trimCR(line), offset, lineNo)
		if !hasNext {
			break
		}
		offset += len(line) + 1
		lineNo++
	}

	if s.fence != "" {
		// Unterminated fence runs to the end of the document.
		s.doc.Code = append(s.doc.Code, core.Range{Start: s.fenceStart, End: len(s.text)})
	}
	for _, sec := range s.stack[1:] {
		sec.Span.End = len(s.text)
	}
}

func (s *scanner) line(line string, offset, lineNo int) {
	if m := fencePattern.FindStringSubmatch(line); m != nil {
		marker := m[1]
		switch {
		case s.fence == "":
			s.fence = marker
			s.fenceStart = offset
		case marker[0] == s.fence[0] && len(marker) >= len(s.fence) && strings.TrimSpace(line[len(m[0]):]) == "":
			s.fence = ""
			s.doc.Code = append(s.doc.Code, core.Range{Start: s.fenceStart, End: offset + len(line)})
		}
		return
	}
	if s.fence != "" {
		return
	}

	if m := headingPattern.FindStringSubmatch(line); m != nil {
		s.heading(len(m[1]), cleanHeading(m[2]), offset, lineNo, strings.Index(line, "#")+1)
		return
	}

	// Mask inline code so links inside it are ignored.
	masked := line
	for _, loc := range inlineCode.FindAllStringIndex(line, -1) {
		s.doc.Code = append(s.doc.Code, core.Range{Start: offset + loc[0], End: offset + loc[1]})
		masked = masked[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + masked[loc[1]:]
	}
	for _, loc := range linkPattern.FindAllStringSubmatchIndex(masked, -1) {
		s.link(line, loc, offset, lineNo)
	}
}

func (s *scanner) heading(level int, title string, offset, lineNo, col int) {
	s.doc.Headings = append(s.doc.Headings, core.Heading{
		Level: level,
		Text:  title,
		Pos:   core.Position{Line: lineNo, Column: col},
	})

	for len(s.stack) > 1 && s.stack[len(s.stack)-1].Level >= level {
		s.stack[len(s.stack)-1].Span.End = offset
		s.stack = s.stack[:len(s.stack)-1]
	}
	sec := &core.Section{Level: level, Title: title, Span: core.Range{Start: offset}}
	parent := s.stack[len(s.stack)-1]
	parent.Children = append(parent.Children, sec)
	s.stack = append(s.stack, sec)
}

func (s *scanner) link(line string, loc []int, offset, lineNo int) {
	span := core.Range{Start: offset + loc[0], End: offset + loc[1]}
	pos := core.Position{Line: lineNo, Column: loc[0] + 1}
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return line[loc[2*i]:loc[2*i+1]]
	}

	if loc[4] >= 0 {
		// Wikilink or embed.
		target, alias, _ := strings.Cut(group(2), "|")
		target = strings.TrimSpace(target)
		if group(1) == "!" {
			s.doc.Attachments = append(s.doc.Attachments, core.Attachment{
				Kind:   core.LinkWiki,
				Target: stripAnchor(target),
				Pos:    pos,
				Span:   span,
			})
			return
		}
		s.doc.Links = append(s.doc.Links, core.Link{
			Kind:   core.LinkWiki,
			Target: stripAnchor(target),
			Text:   strings.TrimSpace(alias),
			Pos:    pos,
			Span:   span,
		})
		return
	}

	target := group(5)
	if group(3) == "!" {
		s.doc.Attachments = append(s.doc.Attachments, core.Attachment{
			Kind:   core.LinkMarkdown,
			Target: unescape(stripAnchor(target)),
			Pos:    pos,
			Span:   span,
		})
		return
	}
	s.doc.Links = append(s.doc.Links, core.Link{
		Kind:   core.LinkMarkdown,
		Target: target,
		Text:   group(4),
		Pos:    pos,
		Span:   span,
	})
}

// cleanHeading drops an optional closing sequence of #s.
func cleanHeading(text string) string {
	text = strings.TrimSpace(text)
	trimmed := strings.TrimRight(text, "#")
	if trimmed == "" {
		return ""
	}
	if trimmed != text && !strings.HasSuffix(trimmed, " ") && !strings.HasSuffix(trimmed, "\t") {
		return text
	}
	return strings.TrimSpace(trimmed)
}

// stripAnchor removes "#heading" and "^block" suffixes from a link target.
func stripAnchor(target string) string {
	if i := strings.IndexAny(target, "#^"); i >= 0 {
		return strings.TrimSpace(target[:i])
	}
	return target
}

func unescape(target string) string {
	if u, err := url.PathUnescape(target); err == nil {
		return u
	}
	return target
}

// IsExternal reports whether a link target points outside the vault.
func IsExternal(target string) bool {
	if strings.HasPrefix(target, "//") {
		return true
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme != ""
}

// ResolveTarget joins a relative attachment target to the directory of the
// note it appears in, returning a vault-relative path.
func ResolveTarget(notePath, target string) string {
	target = filepath.ToSlash(target)
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(path.Dir(filepath.ToSlash(notePath)), target))
}

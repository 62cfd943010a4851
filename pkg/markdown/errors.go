package markdown

import "fmt"

// FrontmatterParseError is returned when the frontmatter block is not a
// valid YAML mapping.
type FrontmatterParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: invalid frontmatter: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: invalid frontmatter: %s", e.Path, e.Message)
}

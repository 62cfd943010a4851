package markdown

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// frontmatterBlock locates the frontmatter fences.
type frontmatterBlock struct {
	found bool
	block core.Range // whole block including fences and the closing newline
	body  core.Range // YAML between the fences
}

// findFrontmatter looks for a "---" line at the very start of content and a
// closing "---" (or "...") line. An unterminated block is not frontmatter.
func findFrontmatter(content string) frontmatterBlock {
	first, rest, ok := cutLine(content)
	if !ok || trimCR(first) != "---" {
		return frontmatterBlock{}
	}
	bodyStart := len(content) - len(rest)
	offset := bodyStart
	for offset < len(content) {
		line, _, hasNext := cutLine(content[offset:])
		lineEnd := offset + len(line)
		if l := trimCR(line); l == "---" || l == "..." {
			end := lineEnd
			if hasNext {
				end++ // include newline
			}
			return frontmatterBlock{
				found: true,
				block: core.Range{Start: 0, End: end},
				body:  core.Range{Start: bodyStart, End: offset},
			}
		}
		if !hasNext {
			break
		}
		offset = lineEnd + 1
	}
	return frontmatterBlock{}
}

// decodeFrontmatter decodes the YAML body into a map. An empty body yields an
// empty, non-nil map.
func decodeFrontmatter(path, body string) (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(body) == "" {
		return out, nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(body), &node); err != nil {
		return nil, &FrontmatterParseError{Path: path, Message: err.Error()}
	}
	if len(node.Content) == 0 {
		return out, nil
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &FrontmatterParseError{
			Path:    path,
			Line:    root.Line + 1,
			Message: fmt.Sprintf("expected a mapping, got %s", kindName(root.Kind)),
		}
	}
	if err := root.Decode(&out); err != nil {
		return nil, &FrontmatterParseError{Path: path, Line: root.Line + 1, Message: err.Error()}
	}
	return out, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "a document"
	}
}

// cutLine splits s at the first newline. ok is false when s is empty.
func cutLine(s string) (line, rest string, ok bool) {
	if s == "" {
		return "", "", false
	}
	line, rest, found := strings.Cut(s, "\n")
	if !found {
		return line, "", false
	}
	return line, rest, true
}

func trimCR(s string) string {
	return strings.TrimSuffix(s, "\r")
}

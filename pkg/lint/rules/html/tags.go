package html

import (
	"regexp"
	"slices"
	"strings"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

var tagPattern = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9-]*)(?:\s[^<>]*?)?(/?)>`)

// voidElements never have a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

type tagKind int

const (
	tagOpen tagKind = iota
	tagClose
	tagSelfClosing
)

// tag is one HTML tag found in a note body.
type tag struct {
	name string // lower case
	kind tagKind
	span core.Range
}

// fragment is a complete HTML element (or a stray tag) to convert.
type fragment struct {
	span  core.Range
	name  string
	stray bool // unmatched open or close tag
}

// scanTags finds tags outside frontmatter and code, skipping allowed names.
func scanTags(doc *core.ParsedDocument, allowed []string) []tag {
	var tags []tag
	for _, loc := range tagPattern.FindAllStringSubmatchIndex(doc.Content, -1) {
		start := loc[0]
		if doc.HasFrontmatter && start < doc.FrontmatterRange.End {
			continue
		}
		if doc.InCode(start) {
			continue
		}
		name := strings.ToLower(doc.Content[loc[4]:loc[5]])
		if slices.Contains(allowed, name) {
			continue
		}
		kind := tagOpen
		switch {
		case loc[3] > loc[2]:
			kind = tagClose
		case loc[7] > loc[6], voidElements[name]:
			kind = tagSelfClosing
		}
		tags = append(tags, tag{name: name, kind: kind, span: core.Range{Start: start, End: loc[1]}})
	}
	return tags
}

// pairFragments matches open and close tags into elements. The result is
// sorted by start offset and contains only outermost fragments.
func pairFragments(tags []tag) []fragment {
	var (
		all   []fragment
		stack []tag
	)
	for _, t := range tags {
		switch t.kind {
		case tagSelfClosing:
			all = append(all, fragment{span: t.span, name: t.name})
		case tagOpen:
			stack = append(stack, t)
		case tagClose:
			i := len(stack) - 1
			for i >= 0 && stack[i].name != t.name {
				i--
			}
			if i < 0 {
				all = append(all, fragment{span: t.span, name: t.name, stray: true})
				continue
			}
			for _, unclosed := range stack[i+1:] {
				all = append(all, fragment{span: unclosed.span, name: unclosed.name, stray: true})
			}
			all = append(all, fragment{
				span: core.Range{Start: stack[i].span.Start, End: t.span.End},
				name: t.name,
			})
			stack = stack[:i]
		}
	}
	for _, unclosed := range stack {
		all = append(all, fragment{span: unclosed.span, name: unclosed.name, stray: true})
	}

	slices.SortFunc(all, func(a, b fragment) int {
		if a.span.Start != b.span.Start {
			return a.span.Start - b.span.Start
		}
		return b.span.End - a.span.End // longer first
	})
	var out []fragment
	end := -1
	for _, f := range all {
		if f.span.Start < end {
			continue // nested in the previous fragment
		}
		out = append(out, f)
		end = f.span.End
	}
	return out
}

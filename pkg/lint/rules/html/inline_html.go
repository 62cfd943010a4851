package html

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// Major is the family id.
const Major = "inline-html"

// Variants.
const (
	Forbid  = "forbid"
	Convert = "convert"
)

func init() {
	lint.Register(lint.Family{
		Major:       Major,
		Description: "Note bodies use Markdown instead of inline HTML",
		Variants:    []string{Forbid, Convert},
		New:         newRule,
	})
}

type settings struct {
	AllowedTags []string `mapstructure:"allowed_tags"`
}

func newRule(id core.RuleID, cfg lint.RuleConfig) (lint.Rule, error) {
	var s settings
	if err := lint.DecodeSettings(cfg.Setting(), &s); err != nil {
		return nil, err
	}
	for i, t := range s.AllowedTags {
		s.AllowedTags[i] = strings.ToLower(strings.Trim(strings.TrimSpace(t), "<>/"))
	}
	if len(cfg.IncludePatterns) == 0 {
		cfg.IncludePatterns = []string{"**/*.md"}
	}

	c := &checker{allowed: s.AllowedTags}
	def := lint.Def{
		ID:          id,
		Name:        "no-inline-html",
		Description: "Inline HTML should be written as Markdown",
		Category:    "content",
		Config:      cfg,
		Check:       c.check,
	}
	if id.Minor == Convert {
		def.Repair = c.repair
	}
	return lint.New(def)
}

type checker struct {
	allowed []string
}

func (c *checker) check(ctx *lint.Context) ([]core.Issue, error) {
	doc := ctx.File
	var issues []core.Issue
	for _, t := range scanTags(doc, c.allowed) {
		if t.kind == tagClose {
			continue
		}
		pos := core.PositionAt(doc.Content, t.span.Start)
		issues = append(issues, core.Issue{
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("inline HTML <%s> found", t.name),
			Line:     pos.Line,
			Column:   pos.Column,
			Fixable:  true,
		})
	}
	// Closing tags without an opening tag would survive a fix unnoticed.
	for _, f := range pairFragments(scanTags(doc, c.allowed)) {
		if !f.stray || doc.Content[f.span.Start+1] != '/' {
			continue
		}
		pos := core.PositionAt(doc.Content, f.span.Start)
		issues = append(issues, core.Issue{
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("stray closing tag </%s>", f.name),
			Line:     pos.Line,
			Column:   pos.Column,
			Fixable:  true,
		})
	}
	return issues, nil
}

func (c *checker) repair(ctx *lint.Context, issues []core.Issue) ([]core.Fix, error) {
	if !core.HasFixable(issues) {
		return nil, nil
	}
	doc := ctx.File
	frags := pairFragments(scanTags(doc, c.allowed))
	if len(frags) == 0 {
		return nil, nil
	}

	changes := make([]core.FileChange, 0, len(frags))
	for _, f := range frags {
		original := doc.Content[f.span.Start:f.span.End]
		md, err := toMarkdown(f, original)
		if err != nil {
			return nil, fmt.Errorf("convert <%s>: %w", f.name, err)
		}
		changes = append(changes, core.ReplaceRange(f.span, original, md))
	}
	return []core.Fix{{
		Description: fmt.Sprintf("convert %d HTML fragment(s) to Markdown", len(frags)),
		Changes:     changes,
	}}, nil
}

// toMarkdown converts one fragment. Stray tags are dropped.
func toMarkdown(f fragment, original string) (string, error) {
	if f.stray {
		return "", nil
	}
	switch f.name {
	case "br":
		return "\n", nil
	case "hr":
		return "\n---\n", nil
	}
	md, err := htmltomarkdown.ConvertString(original)
	if err != nil {
		return "", err
	}
	md = strings.TrimSpace(md)
	if strings.Contains(md, "<") && tagPattern.MatchString(md) {
		// The converter kept raw HTML it has no Markdown for; fall back to
		// the element's text so the fix converges.
		md = strings.TrimSpace(tagPattern.ReplaceAllString(md, ""))
	}
	return md, nil
}

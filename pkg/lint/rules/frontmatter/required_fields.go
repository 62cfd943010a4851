package frontmatter

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// Major is the family id.
const Major = "frontmatter-required-fields"

func init() {
	lint.Register(lint.Family{
		Major:       Major,
		Description: "Notes must carry the configured frontmatter fields",
		Variants:    []string{"strict", "advisory"},
		New:         newRule,
	})
}

// settings is the declaration shape of this family.
type settings struct {
	RequiredFields []string       `mapstructure:"required_fields"`
	Defaults       map[string]any `mapstructure:"defaults"`
}

// builtinDefaults fill fields the declaration has no default for.
// "title" is derived from the file name.
var builtinDefaults = map[string]any{
	"status": "draft",
}

func newRule(id core.RuleID, cfg lint.RuleConfig) (lint.Rule, error) {
	var s settings
	if err := lint.DecodeSettings(cfg.Setting(), &s); err != nil {
		return nil, err
	}
	if len(s.RequiredFields) == 0 {
		s.RequiredFields = []string{"title"}
	}
	for _, f := range s.RequiredFields {
		if strings.TrimSpace(f) == "" {
			return nil, fmt.Errorf("required_fields: empty field name")
		}
	}
	if len(cfg.IncludePatterns) == 0 {
		cfg.IncludePatterns = []string{"**/*.md"}
	}

	c := &checker{settings: s, severity: core.SeverityError}
	def := lint.Def{
		ID:          id,
		Name:        "required-frontmatter-fields",
		Description: "Notes must define " + strings.Join(s.RequiredFields, ", ") + " in frontmatter",
		Category:    "metadata",
		Config:      cfg,
		Check:       c.check,
	}
	switch id.Minor {
	case "strict":
		def.Repair = c.repair
	case "advisory":
		c.severity = core.SeverityWarning
	}
	return lint.New(def)
}

type checker struct {
	settings settings
	severity core.Severity
}

// missing returns the required fields absent or empty in doc, in declaration order.
func (c *checker) missing(doc *core.ParsedDocument) []string {
	var out []string
	for _, field := range c.settings.RequiredFields {
		if isBlank(doc.Frontmatter[field]) {
			out = append(out, field)
		}
	}
	return out
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// defaultFor returns the value the fix writes for field.
func (c *checker) defaultFor(doc *core.ParsedDocument, field string) (any, bool) {
	if v, ok := c.settings.Defaults[field]; ok && !isBlank(v) {
		return v, true
	}
	if field == "title" {
		base := path.Base(doc.Path)
		return strings.TrimSuffix(base, path.Ext(base)), true
	}
	v, ok := builtinDefaults[field]
	return v, ok
}

func (c *checker) check(ctx *lint.Context) ([]core.Issue, error) {
	doc := ctx.File
	blanks := blankKeyLines(doc)
	var issues []core.Issue
	for _, field := range c.missing(doc) {
		_, hasDefault := c.defaultFor(doc, field)
		_, present := doc.Frontmatter[field]
		r, locatable := blanks[field]
		line := 1
		if locatable {
			line = core.PositionAt(doc.Content, r.Start).Line
		}
		issues = append(issues, core.Issue{
			Severity: c.severity,
			Message:  fmt.Sprintf("missing required frontmatter field %q", field),
			Line:     line,
			Fixable:  hasDefault && (!present || locatable),
		})
	}
	return issues, nil
}

func (c *checker) repair(ctx *lint.Context, issues []core.Issue) ([]core.Fix, error) {
	if len(issues) == 0 {
		return nil, nil
	}
	doc := ctx.File
	blanks := blankKeyLines(doc)

	var (
		inserted strings.Builder
		changes  []core.FileChange
		added    []string
	)
	for _, field := range c.missing(doc) {
		v, ok := c.defaultFor(doc, field)
		if !ok {
			continue
		}
		line, err := yaml.Marshal(map[string]any{field: v})
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", field, err)
		}
		if _, present := doc.Frontmatter[field]; present {
			r, ok := blanks[field]
			if !ok {
				continue
			}
			changes = append(changes, core.ReplaceRange(r, doc.Content[r.Start:r.End], string(line)))
		} else {
			inserted.Write(line)
		}
		added = append(added, field)
	}
	if len(added) == 0 {
		return nil, nil
	}

	if inserted.Len() > 0 {
		if doc.HasFrontmatter {
			changes = append(changes, core.Insert(doc.FrontmatterBody.End, inserted.String()))
		} else {
			changes = append(changes, core.Insert(0, "---\n"+inserted.String()+"---\n"))
		}
	}
	return []core.Fix{{
		Description: "add frontmatter fields: " + strings.Join(added, ", "),
		Changes:     changes,
	}}, nil
}

// blankKeyLines maps top-level keys whose value is null or an empty string
// to the byte range of their whole line (newline included). Only keys whose
// value sits on the key's own line are reported.
func blankKeyLines(doc *core.ParsedDocument) map[string]core.Range {
	out := make(map[string]core.Range)
	if !doc.HasFrontmatter {
		return out
	}
	body := doc.Content[doc.FrontmatterBody.Start:doc.FrontmatterBody.End]
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(body), &node); err != nil || len(node.Content) == 0 {
		return out
	}
	mapping := node.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return out
	}
	lines := strings.SplitAfter(body, "\n")
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, val := mapping.Content[i], mapping.Content[i+1]
		if key.Column != 1 || val.Kind != yaml.ScalarNode || val.Line != key.Line {
			continue
		}
		if val.Tag != "!!null" && !(val.Tag == "!!str" && strings.TrimSpace(val.Value) == "") {
			continue
		}
		if key.Line < 1 || key.Line > len(lines) {
			continue
		}
		start := doc.FrontmatterBody.Start
		for _, l := range lines[:key.Line-1] {
			start += len(l)
		}
		out[key.Value] = core.Range{Start: start, End: start + len(lines[key.Line-1])}
	}
	return out
}

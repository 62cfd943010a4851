package naming

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// Major is the family id.
const Major = "file-naming"

func init() {
	variants := make([]string, 0, len(styleAliases))
	for v := range styleAliases {
		variants = append(variants, v)
	}
	slices.Sort(variants)

	lint.Register(lint.Family{
		Major:       Major,
		Description: "File names follow one casing convention",
		Variants:    variants,
		New:         newRule,
	})
}

type settings struct {
	Extensions []string `mapstructure:"extensions"`
}

func newRule(id core.RuleID, cfg lint.RuleConfig) (lint.Rule, error) {
	style, ok := styleAliases[id.Minor]
	if !ok {
		return nil, fmt.Errorf("unknown naming style %q", id.Minor)
	}
	var s settings
	if err := lint.DecodeSettings(cfg.Setting(), &s); err != nil {
		return nil, err
	}
	if len(s.Extensions) == 0 {
		s.Extensions = []string{".md"}
	}
	for i, ext := range s.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.Extensions[i] = strings.ToLower(ext)
	}

	c := &checker{style: style, extensions: s.Extensions}
	return lint.New(lint.Def{
		ID:          id,
		Name:        "file-name-" + string(style),
		Description: "File names must be " + string(style),
		Category:    "structure",
		Config:      cfg,
		Check:       c.check,
		Repair:      c.repair,
	})
}

type checker struct {
	style      Style
	extensions []string
}

// expected returns the conventional name for p. ok is false when the
// extension is out of scope; want is "" when no conventional name exists.
func (c *checker) expected(p string) (want string, ok bool) {
	dir, base := path.Split(p)
	ext := path.Ext(base)
	if !slices.Contains(c.extensions, strings.ToLower(ext)) {
		return "", false
	}
	converted := Convert(strings.TrimSuffix(base, ext), c.style)
	if converted == "" {
		return "", true
	}
	return dir + converted + ext, true
}

func (c *checker) check(ctx *lint.Context) ([]core.Issue, error) {
	p := ctx.File.Path
	want, ok := c.expected(p)
	if !ok || want == p {
		return nil, nil
	}
	base := path.Base(p)
	if want == "" {
		return []core.Issue{{
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("file name %q has no usable words for %s", base, c.style),
		}}, nil
	}
	return []core.Issue{{
		Severity: core.SeverityWarning,
		Message:  fmt.Sprintf("file name %q is not %s (expected %q)", base, c.style, path.Base(want)),
		Fixable:  true,
	}}, nil
}

func (c *checker) repair(ctx *lint.Context, issues []core.Issue) ([]core.Fix, error) {
	if !core.HasFixable(issues) {
		return nil, nil
	}
	want, ok := c.expected(ctx.File.Path)
	if !ok || want == "" || want == ctx.File.Path {
		return nil, nil
	}
	return []core.Fix{{
		Description: "rename to " + path.Base(want),
		Changes:     []core.FileChange{core.Rename(want)},
	}}, nil
}

package attachments

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// Major is the family id.
const Major = "attachment-organization"

// Variants.
const (
	Centralized = "centralized"
	ByType      = "by-type"
)

func init() {
	lint.Register(lint.Family{
		Major:       Major,
		Description: "Attachments live under one attachments directory",
		Variants:    []string{Centralized, ByType},
		New:         newRule,
	})
}

// defaultTypeDirs maps attachment extensions to their by-type subdirectory.
var defaultTypeDirs = map[string]string{
	".png": "images", ".jpg": "images", ".jpeg": "images", ".gif": "images",
	".svg": "images", ".webp": "images", ".bmp": "images", ".avif": "images",
	".pdf": "pdfs",
	".mp3": "audio", ".wav": "audio", ".m4a": "audio", ".ogg": "audio", ".flac": "audio",
	".mp4": "video", ".mov": "video", ".webm": "video", ".mkv": "video",
}

type settings struct {
	AttachmentsDir string            `mapstructure:"attachments_dir"`
	Extensions     []string          `mapstructure:"extensions"`
	TypeDirs       map[string]string `mapstructure:"type_dirs"`
}

func newRule(id core.RuleID, cfg lint.RuleConfig) (lint.Rule, error) {
	var s settings
	if err := lint.DecodeSettings(cfg.Setting(), &s); err != nil {
		return nil, err
	}

	dir := lint.NormalizePath(s.AttachmentsDir)
	if s.AttachmentsDir == "" {
		dir = "attachments"
	}
	if dir == "" || dir == ".." || strings.HasPrefix(dir, "../") {
		return nil, fmt.Errorf("attachments_dir %q must be a directory inside the vault", s.AttachmentsDir)
	}

	typeDirs := make(map[string]string, len(defaultTypeDirs))
	for ext, d := range defaultTypeDirs {
		typeDirs[ext] = d
	}
	for ext, d := range s.TypeDirs {
		typeDirs[normalizeExt(ext)] = d
	}

	exts := make([]string, 0, len(s.Extensions))
	for _, e := range s.Extensions {
		exts = append(exts, normalizeExt(e))
	}
	if len(exts) == 0 {
		for e := range typeDirs {
			exts = append(exts, e)
		}
		slices.Sort(exts)
	}

	c := &checker{
		dir:        dir,
		byType:     id.Minor == ByType,
		extensions: exts,
		typeDirs:   typeDirs,
	}
	return lint.New(lint.Def{
		ID:          id,
		Name:        "attachment-location",
		Description: "Attachments must be stored under " + dir + "/",
		Category:    "structure",
		Config:      cfg,
		Check:       c.check,
		Repair:      c.repair,
	})
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

type checker struct {
	dir        string
	byType     bool
	extensions []string
	typeDirs   map[string]string
}

// target returns the directory an attachment at p belongs in, or "" when p
// is not an attachment.
func (c *checker) target(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if !slices.Contains(c.extensions, ext) {
		return ""
	}
	if !c.byType {
		return c.dir
	}
	sub, ok := c.typeDirs[ext]
	if !ok {
		sub = "other"
	}
	return path.Join(c.dir, sub)
}

func within(p, dir string) bool {
	return strings.HasPrefix(p, dir+"/")
}

func (c *checker) check(ctx *lint.Context) ([]core.Issue, error) {
	p := ctx.File.Path
	dir := c.target(p)
	if dir == "" || within(p, dir) {
		return nil, nil
	}
	return []core.Issue{{
		Severity: core.SeverityWarning,
		Message:  fmt.Sprintf("attachment %q is outside %s/", path.Base(p), dir),
		Fixable:  true,
	}}, nil
}

func (c *checker) repair(ctx *lint.Context, issues []core.Issue) ([]core.Fix, error) {
	if !core.HasFixable(issues) {
		return nil, nil
	}
	p := ctx.File.Path
	dir := c.target(p)
	if dir == "" || within(p, dir) {
		return nil, nil
	}
	dest := path.Join(dir, path.Base(p))
	return []core.Fix{{
		Description: "move to " + dest,
		Changes:     []core.FileChange{core.Rename(dest)},
	}}, nil
}

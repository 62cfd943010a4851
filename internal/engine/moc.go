package engine

import (
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/markdown"
)

// MOCRuleID identifies map-of-content fixes in results.
const MOCRuleID = "moc.generate"

type mocFrontmatter struct {
	MOC   bool   `yaml:"moc"`
	Title string `yaml:"title"`
}

// mocDir is one directory of the vault as seen by MOC generation.
type mocDir struct {
	notes   []string // vault-relative note paths
	subdirs []string // vault-relative child directories
}

// generateMOCs writes a _MOC.md into every directory holding notes, and into
// each of their ancestors so the MOCs link up to the vault root. A MOC is only
// rewritten when its content changes.
func (r *vaultRun) generateMOCs(files []string) ([]core.Fix, []core.ProcessingError) {
	dirs := mocTree(files)
	if len(dirs) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(dirs))
	for d := range dirs {
		keys = append(keys, d)
	}
	sort.Strings(keys)

	var (
		fixes []core.Fix
		errs  []core.ProcessingError
	)
	for _, dir := range keys {
		rel := path.Join(dir, MOCFileName)
		content := renderMOC(r.mocTitle(dir), dirs[dir])

		current, err := afero.ReadFile(r.engine.fs, abs(r.root, rel))
		if err == nil && string(current) == content {
			continue
		}

		fix := core.Fix{
			RuleID:      MOCRuleID,
			File:        rel,
			Description: "Generate map of content for " + displayDir(dir),
			Changes:     []core.FileChange{core.ReplaceContent(content)},
		}
		if !r.opts.DryRun {
			if err := r.engine.writeMOC(r.root, rel, content); err != nil {
				errs = append(errs, core.ProcessingError{File: rel, RuleID: MOCRuleID, Stage: core.StageMOC, Message: err.Error()})
				continue
			}
		}
		fixes = append(fixes, fix)
	}
	r.logger.Debug("generated maps of content", "count", len(fixes))
	return fixes, errs
}

func (e *Engine) writeMOC(root, rel, content string) error {
	if err := e.fs.MkdirAll(dirOf(abs(root, rel)), 0o755); err != nil {
		return err
	}
	return e.atomicWrite(abs(root, rel), []byte(content))
}

// mocTree groups notes by directory, registering every ancestor up to the
// vault root ("").
func mocTree(files []string) map[string]*mocDir {
	dirs := make(map[string]*mocDir)
	get := func(d string) *mocDir {
		if dirs[d] == nil {
			dirs[d] = &mocDir{}
		}
		return dirs[d]
	}

	for _, f := range files {
		if !markdown.IsMarkdown(f) {
			continue
		}
		dir := parentDir(f)
		get(dir).notes = append(get(dir).notes, f)

		for dir != "" {
			parent := parentDir(dir)
			p := get(parent)
			if !slices.Contains(p.subdirs, dir) {
				p.subdirs = append(p.subdirs, dir)
			}
			dir = parent
		}
	}

	for _, d := range dirs {
		sort.Strings(d.notes)
		sort.Strings(d.subdirs)
	}
	return dirs
}

func renderMOC(title string, d *mocDir) string {
	var b strings.Builder
	meta, _ := yaml.Marshal(mocFrontmatter{MOC: true, Title: title})
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n# ")
	b.WriteString(title)
	b.WriteString("\n")

	if len(d.notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, n := range d.notes {
			b.WriteString("- [[")
			b.WriteString(strings.TrimSuffix(n, path.Ext(n)))
			b.WriteString("]]\n")
		}
	}
	if len(d.subdirs) > 0 {
		b.WriteString("\n## Folders\n\n")
		for _, s := range d.subdirs {
			b.WriteString("- [[")
			b.WriteString(path.Join(s, strings.TrimSuffix(MOCFileName, ".md")))
			b.WriteString("|")
			b.WriteString(path.Base(s))
			b.WriteString("]]\n")
		}
	}
	return b.String()
}

func (r *vaultRun) mocTitle(dir string) string {
	if dir == "" {
		return filepath.Base(filepath.Clean(r.root))
	}
	return path.Base(dir)
}

func displayDir(dir string) string {
	if dir == "" {
		return "vault root"
	}
	return dir
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

package commands

import (
	"embed"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

//go:embed all:templates
var templateFS embed.FS

// copyTemplate copies an embedded template directory into targetDir on fsys.
// Existing files are kept unless force is set. It returns the files written,
// relative to targetDir.
func copyTemplate(fsys afero.Fs, templateName, targetDir string, force bool) ([]string, error) {
	root := path.Join("templates", templateName)
	var written []string

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			return nil
		}
		rel = renameSpecialFiles(rel)
		targetPath := filepath.Join(targetDir, filepath.FromSlash(rel))

		if d.IsDir() {
			return fsys.MkdirAll(targetPath, 0o750)
		}

		if !force {
			if _, err := fsys.Stat(targetPath); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(fsys, targetPath, content, 0o644); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	})

	return written, err
}

// renameSpecialFiles maps template path segments that cannot be embedded
// under their real names ("dot-vaultlint" -> ".vaultlint").
func renameSpecialFiles(rel string) string {
	parts := strings.Split(rel, "/")
	for i, part := range parts {
		if rest, ok := strings.CutPrefix(part, "dot-"); ok {
			parts[i] = "." + rest
		}
	}
	return strings.Join(parts, "/")
}

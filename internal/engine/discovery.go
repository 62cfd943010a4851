package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// MOCFileName is the map-of-content note written per directory.
const MOCFileName = "_MOC.md"

// discovery is the file set of one run.
type discovery struct {
	files  []string // vault-relative, sorted
	errors []core.ProcessingError
}

// discover walks the vault. Hidden entries, the backup directory, MOC notes
// and ignored files are skipped. A missing or non-directory root is a
// ConfigurationError; errors on individual entries are recorded.
func (e *Engine) discover(root string, ignore []string) (*discovery, error) {
	info, err := e.fs.Stat(root)
	if err != nil {
		return nil, &core.ConfigurationError{Op: "open vault " + root, Err: err}
	}
	if !info.IsDir() {
		return nil, &core.ConfigurationError{Op: "open vault " + root, Err: errors.New("not a directory")}
	}

	d := &discovery{}
	walkErr := afero.Walk(e.fs, root, func(path string, info os.FileInfo, err error) error {
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			if rel == "." {
				return err
			}
			d.errors = append(d.errors, core.ProcessingError{
				File:    rel,
				Stage:   core.StageDiscover,
				Message: err.Error(),
			})
			return nil
		}
		if rel == "." {
			return nil
		}

		name := info.Name()
		if info.IsDir() {
			if strings.HasPrefix(name, ".") || e.isBackupPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || name == MOCFileName {
			return nil
		}
		if lint.MatchAny(ignore, rel) {
			return nil
		}
		d.files = append(d.files, rel)
		return nil
	})
	if walkErr != nil {
		return nil, &core.ConfigurationError{Op: "walk vault " + root, Err: walkErr}
	}

	sort.Strings(d.files)
	return d, nil
}

func (e *Engine) isBackupPath(rel string) bool {
	return rel == e.backupDir || strings.HasPrefix(rel, e.backupDir+"/")
}

// abs joins a vault-relative path to the vault root.
func abs(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// exists reports whether a vault-relative path exists.
func (e *Engine) exists(root, rel string) (bool, error) {
	ok, err := afero.Exists(e.fs, abs(root, rel))
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", rel, err)
	}
	return ok, nil
}

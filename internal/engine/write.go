package engine

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

const filePerm = 0o644

// errChangedOnDisk reports that a file no longer holds the content it was
// linted with.
var errChangedOnDisk = errors.New("file changed on disk since it was linted")

// writeFile replaces rel with content. rel must still hold original. The
// original is copied to the backup directory first when backup is set. The
// write goes to a temp file in the same directory which is then renamed over
// the target.
func (e *Engine) writeFile(root, rel, original, content string, backup bool) error {
	if err := e.verifyUnchanged(root, rel, original); err != nil {
		return err
	}
	if backup {
		if err := e.backup(root, rel, original); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
	}
	return e.atomicWrite(abs(root, rel), []byte(content))
}

// verifyUnchanged returns errChangedOnDisk when rel differs from want.
func (e *Engine) verifyUnchanged(root, rel, want string) error {
	data, err := afero.ReadFile(e.fs, abs(root, rel))
	if err != nil {
		return fmt.Errorf("re-read before write: %w", err)
	}
	if string(data) != want {
		return errChangedOnDisk
	}
	return nil
}

// backup stores original at <backupDir>/<rel>.bak, overwriting older copies.
func (e *Engine) backup(root, rel, original string) error {
	target := abs(root, path.Join(e.backupDir, rel+".bak"))
	if err := e.fs.MkdirAll(dirOf(target), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(e.fs, target, []byte(original), filePerm)
}

func (e *Engine) atomicWrite(target string, data []byte) error {
	perm := os.FileMode(filePerm)
	if info, err := e.fs.Stat(target); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(e.fs, dirOf(target), ".vaultlint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = e.fs.Remove(name)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = e.fs.Remove(name)
		return fmt.Errorf("close temp file: %w", err)
	}
	_ = e.fs.Chmod(name, perm)
	if err := e.fs.Rename(name, target); err != nil {
		_ = e.fs.Remove(name)
		return fmt.Errorf("replace %s: %w", target, err)
	}
	return nil
}

// rename moves a vault file, creating the target directory.
func (e *Engine) rename(root, from, to string) error {
	dst := abs(root, to)
	if err := e.fs.MkdirAll(dirOf(dst), 0o755); err != nil {
		return err
	}
	return e.fs.Rename(abs(root, from), dst)
}

func dirOf(p string) string {
	return filepath.Dir(p)
}

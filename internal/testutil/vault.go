package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// VaultRoot is the root used by in-memory test vaults.
const VaultRoot = "/vault"

// NewVault returns an in-memory filesystem holding files under VaultRoot.
// Keys are vault-relative, slash-separated paths.
func NewVault(t testing.TB, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(VaultRoot, 0o755))
	for rel, content := range files {
		WriteFile(t, fs, rel, content)
	}
	return fs
}

// WriteFile writes a vault-relative file, creating parent directories.
func WriteFile(t testing.TB, fs afero.Fs, rel, content string) {
	t.Helper()
	p := filepath.Join(VaultRoot, filepath.FromSlash(rel))
	require.NoError(t, fs.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0o644))
}

// ReadFile returns a vault-relative file's content.
func ReadFile(t testing.TB, fs afero.Fs, rel string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, filepath.Join(VaultRoot, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// Snapshot returns every file under VaultRoot keyed by vault-relative path.
func Snapshot(t testing.TB, fs afero.Fs) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := afero.Walk(fs, VaultRoot, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(VaultRoot, p)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

// ListFiles returns the sorted vault-relative paths of all files.
func ListFiles(t testing.TB, fs afero.Fs) []string {
	t.Helper()
	var out []string
	for rel := range Snapshot(t, fs) {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

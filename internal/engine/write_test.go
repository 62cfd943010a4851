package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultlint/internal/testutil"
)

func TestWriteFile(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{"notes/a.md": "old"})
	e := newEngine(t, fs)

	require.NoError(t, e.writeFile(root, "notes/a.md", "old", "new", true))

	assert.Equal(t, "new", testutil.ReadFile(t, fs, "notes/a.md"))
	assert.Equal(t, "old", testutil.ReadFile(t, fs, ".vaultlint/backups/notes/a.md.bak"))
	assert.Equal(t, []string{".vaultlint/backups/notes/a.md.bak", "notes/a.md"}, testutil.ListFiles(t, fs),
		"no temp files left behind")
}

func TestWriteFile_KeepsPermissions(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{"a.md": "old"})
	require.NoError(t, fs.Chmod(root+"/a.md", 0o600))
	e := newEngine(t, fs)

	require.NoError(t, e.writeFile(root, "a.md", "old", "new", false))

	info, err := fs.Stat(root + "/a.md")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRename_CreatesTargetDir(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{"pic.png": "png"})
	e := newEngine(t, fs)

	require.NoError(t, e.rename(root, "pic.png", "attachments/images/pic.png"))
	assert.Equal(t, []string{"attachments/images/pic.png"}, testutil.ListFiles(t, fs))
}

func TestDiscover(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{
		"b.md":                        "",
		"a/c.md":                      "",
		"a/_MOC.md":                   "",
		".git/config":                 "",
		".vaultlint/backups/b.md.bak": "",
		"templates/t.md":              "",
		"pic.png":                     "",
	})
	e := newEngine(t, fs)

	d, err := e.discover(root, []string{"templates/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/c.md", "b.md", "pic.png"}, d.files)
	assert.Empty(t, d.errors)
}

func TestDiscover_CustomBackupDir(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{
		"a.md":             "",
		"backups/a.md.bak": "",
	})
	e := New(Config{FS: fs, BackupDir: "./backups/"})

	d, err := e.discover(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, d.files)
}

func TestWriteFile_ChangedOnDisk(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{"a.md": "edited"})
	e := newEngine(t, fs)

	err := e.writeFile(root, "a.md", "old", "new", true)
	require.ErrorIs(t, err, errChangedOnDisk)

	assert.Equal(t, "edited", testutil.ReadFile(t, fs, "a.md"))
	assert.Equal(t, []string{"a.md"}, testutil.ListFiles(t, fs))
}

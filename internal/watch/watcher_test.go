package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultlint/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, rel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, rel)
}

func (r *recorder) seen(rel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.paths {
		if p == rel {
			return true
		}
	}
	return false
}

func TestWatcher_Relevant(t *testing.T) {
	w := &Watcher{root: "/vault", ignore: []string{"templates/**"}, skip: []string{"_MOC.md"}}

	tests := []struct {
		name     string
		path     string
		expected string
		ok       bool
	}{
		{"note", "/vault/notes/a.md", "notes/a.md", true},
		{"root", "/vault", "", false},
		{"outside", "/other/a.md", "", false},
		{"hidden dir", "/vault/.obsidian/app.json", "", false},
		{"hidden file", "/vault/notes/.a.md.swp", "", false},
		{"ignored", "/vault/templates/t.md", "", false},
		{"skipped", "/vault/notes/_MOC.md", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, ok := w.relevant(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, rel)
		})
	}
}

func TestWatcher_Run(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0o755))

	rec := &recorder{}
	w, err := New(Config{
		Root:     root,
		Ignore:   []string{"templates/**"},
		Debounce: 10 * time.Millisecond,
		Logger:   testutil.NewTestLogger(t),
		OnChange: rec.handle,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "a.md"), []byte("# A\n"), 0o644))
	require.Eventually(t, func() bool { return rec.seen("notes/a.md") }, 2*time.Second, 10*time.Millisecond)

	// new directories are picked up
	require.NoError(t, os.MkdirAll(filepath.Join(root, "projects"), 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "projects", "b.md"), []byte("# B\n"), 0o644))
	require.Eventually(t, func() bool { return rec.seen("projects/b.md") }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestNew_RequiresHandler(t *testing.T) {
	_, err := New(Config{Root: t.TempDir()})
	assert.Error(t, err)
}

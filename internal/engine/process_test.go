package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultlint/internal/testutil"
	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
	"github.com/leapstack-labs/vaultlint/pkg/markdown"
)

func TestProcessVault_MissingRequiredField(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{
		"notes/review.md": "---\ntitle: Weekly review\n---\n# Notes\n",
	})
	e := newEngine(t, fs, requiredFields(t))

	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed)
	require.Len(t, result.IssuesFound, 1)
	issue := result.IssuesFound[0]
	assert.Equal(t, "frontmatter-required-fields.strict", issue.RuleID)
	assert.Equal(t, core.SeverityError, issue.Severity)
	assert.Equal(t, "notes/review.md", issue.File)
	assert.Contains(t, issue.Message, "status")
	assert.True(t, issue.Fixable)
	assert.Empty(t, result.FixesApplied, "fixes are only computed with Fix")
	assert.Equal(t, 1, result.ExitCode())
}

func TestProcessVault_FixThenLint(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{
		"notes/review.md": "---\ntitle: Weekly review\n---\n# Notes\n",
	})
	e := newEngine(t, fs, requiredFields(t))

	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Fix: true}, nil)
	require.NoError(t, err)
	require.Len(t, result.FixesApplied, 1)
	assert.Equal(t, "notes/review.md", result.FixesApplied[0].File)
	assert.Empty(t, result.Errors)

	fixed := testutil.ReadFile(t, fs, "notes/review.md")
	assert.Contains(t, fixed, "status: draft\n")
	assert.True(t, strings.HasSuffix(fixed, "---\n# Notes\n"))

	again, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{}, nil)
	require.NoError(t, err)
	assert.Empty(t, again.IssuesFound)
}

func TestProcessVault_IgnorePatterns(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{
		"templates/daily.md":     "# {{date}}\n",
		"notes/a.md":             "---\ntitle: A\nstatus: done\n---\n",
		".obsidian/workspace.md": "# hidden\n",
		".hidden.md":             "# hidden\n",
		"_MOC.md":                "# moc\n",
	})
	e := newEngine(t, fs, requiredFields(t))

	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{
		Ignore: []string{"templates/**"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed)
	assert.Empty(t, result.IssuesFound)
}

func TestProcessVault_DryRunWritesNothing(t *testing.T) {
	files := map[string]string{
		"My Note.md":         "# Untitled\n",
		"notes/Review.md":    "---\ntitle: Review\n---\n",
		"notes/ok-note.md":   "---\ntitle: Fine\nstatus: done\n---\n",
		"assets/image.png":   "png",
		"projects/Plan A.md": "",
	}
	fs := testutil.NewVault(t, files)
	e := newEngine(t, fs, requiredFields(t), kebabCase(t))
	before := testutil.Snapshot(t, fs)

	dry, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Fix: true, DryRun: true, Backup: true}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, dry.FixesApplied)
	assert.Equal(t, before, testutil.Snapshot(t, fs))

	applied, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Fix: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, dry.FixesApplied, applied.FixesApplied)
	assert.Equal(t, dry.IssuesFound, applied.IssuesFound)
	assert.NotEqual(t, before, testutil.Snapshot(t, fs))
}

func TestProcessVault_Idempotent(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{
		"My Note.md":           "# Untitled\n",
		"notes/Weekly Plan.md": "---\ntitle: Plan\n---\nbody\n",
		"notes/done.md":        "---\ntitle: Done\nstatus: done\n---\n",
	})
	e := newEngine(t, fs, requiredFields(t), kebabCase(t))
	opts := core.ProcessOptions{Fix: true}

	first, err := e.ProcessVault(context.Background(), root, opts, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, first.FixesApplied)
	assert.Empty(t, first.Errors)

	assert.Equal(t, []string{"my-note.md", "notes/done.md", "notes/weekly-plan.md"}, testutil.ListFiles(t, fs))
	note := testutil.ReadFile(t, fs, "my-note.md")
	assert.Contains(t, note, "title: My Note\n")
	assert.Contains(t, note, "status: draft\n")

	snapshot := testutil.Snapshot(t, fs)
	second, err := e.ProcessVault(context.Background(), root, opts, nil)
	require.NoError(t, err)
	assert.Empty(t, second.IssuesFound)
	assert.Empty(t, second.FixesApplied)
	assert.Equal(t, snapshot, testutil.Snapshot(t, fs))
}

func TestProcessVault_Backup(t *testing.T) {
	original := "---\ntitle: Weekly review\n---\n# Notes\n"
	fs := testutil.NewVault(t, map[string]string{"notes/review.md": original})
	e := newEngine(t, fs, requiredFields(t))

	_, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Fix: true, Backup: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, original, testutil.ReadFile(t, fs, ".vaultlint/backups/notes/review.md.bak"))
	assert.NotEqual(t, original, testutil.ReadFile(t, fs, "notes/review.md"))

	// backups are never linted
	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesProcessed)
}

func TestProcessVault_RenameCollision(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		expected []string
		fixes    int
	}{
		{
			name:     "target exists",
			files:    map[string]string{"My Note.md": "a", "my-note.md": "b"},
			expected: []string{"My Note.md", "my-note.md"},
			fixes:    0,
		},
		{
			name:     "two files share a target",
			files:    map[string]string{"My Note.md": "a", "my_note.md": "b"},
			expected: []string{"my-note.md", "my_note.md"},
			fixes:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, dryRun := range []bool{false, true} {
				fs := testutil.NewVault(t, tt.files)
				e := newEngine(t, fs, kebabCase(t))

				result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Fix: true, DryRun: dryRun}, nil)
				require.NoError(t, err)

				require.Len(t, result.Errors, 1)
				assert.Equal(t, core.StageFix, result.Errors[0].Stage)
				assert.Contains(t, result.Errors[0].Message, "exists")

				if !dryRun {
					assert.Equal(t, tt.expected, testutil.ListFiles(t, fs))
				}
				assert.Len(t, result.FixesApplied, tt.fixes)
			}
		})
	}
}

func TestProcessVault_StaleFixDiscarded(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{"a.md": "hello\n"})
	rule, err := lint.New(lint.Def{
		ID:       core.NewRuleID("stale-edit", "test"),
		Name:     "stale-edit",
		Category: "test",
		Check: func(ctx *lint.Context) ([]core.Issue, error) {
			return []core.Issue{{Severity: core.SeverityWarning, Message: "stale", Fixable: true}}, nil
		},
		Repair: func(ctx *lint.Context, _ []core.Issue) ([]core.Fix, error) {
			return []core.Fix{{Changes: []core.FileChange{
				core.ReplaceRange(core.Range{Start: 0, End: 5}, "howdy", "bye"),
			}}}, nil
		},
	})
	require.NoError(t, err)
	e := newEngine(t, fs, rule)

	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Fix: true}, nil)
	require.NoError(t, err)

	assert.Empty(t, result.FixesApplied)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "stale-edit.test", result.Errors[0].RuleID)
	assert.Equal(t, core.StageFix, result.Errors[0].Stage)
	assert.Equal(t, "hello\n", testutil.ReadFile(t, fs, "a.md"))
}

func TestProcessVault_RuleFailuresCaptured(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{
		"a.md": "---\ntitle: A\n---\n",
		"b.md": "---\ntitle: [broken\n---\n",
	})
	panics := customRule(t, "panics", func(*lint.Context) ([]core.Issue, error) {
		panic("boom")
	})
	fails := customRule(t, "fails", func(*lint.Context) ([]core.Issue, error) {
		return nil, errors.New("cannot check")
	})
	e := newEngine(t, fs, panics, fails, requiredFields(t))

	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesProcessed)
	require.Len(t, result.IssuesFound, 1, "other rules keep running")
	assert.Equal(t, "a.md", result.IssuesFound[0].File)

	var stages []string
	for _, pe := range result.Errors {
		stages = append(stages, fmt.Sprintf("%s/%s/%s", pe.File, pe.Stage, pe.RuleID))
	}
	assert.Equal(t, []string{
		"a.md/lint/fails.test",
		"a.md/lint/panics.test",
		"b.md/parse/",
	}, stages)
	assert.Contains(t, result.Errors[1].Message, "boom")
}

func TestProcessVault_ParallelMatchesSequential(t *testing.T) {
	testutil.VerifyNoLeaks(t)

	files := map[string]string{}
	for i := range 40 {
		switch i % 4 {
		case 0:
			files[fmt.Sprintf("notes/Note %02d.md", i)] = "# Untitled\n"
		case 1:
			files[fmt.Sprintf("notes/note-%02d.md", i)] = fmt.Sprintf("---\ntitle: N%d\n---\n", i)
		case 2:
			files[fmt.Sprintf("daily/day-%02d.md", i)] = fmt.Sprintf("---\ntitle: D%d\nstatus: done\n---\n", i)
		default:
			files[fmt.Sprintf("assets/pic_%02d.png", i)] = "png"
		}
	}

	run := func(parallel bool) (*core.LintResult, map[string]string) {
		fs := testutil.NewVault(t, files)
		e := newEngine(t, fs, requiredFields(t), kebabCase(t))
		result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{
			Fix:            true,
			Parallel:       parallel,
			MaxConcurrency: 4,
		}, nil)
		require.NoError(t, err)
		return result, testutil.Snapshot(t, fs)
	}

	seq, seqFiles := run(false)
	par, parFiles := run(true)

	assert.Equal(t, seq.FilesProcessed, par.FilesProcessed)
	assert.Equal(t, seq.IssuesFound, par.IssuesFound)
	assert.Equal(t, seq.FixesApplied, par.FixesApplied)
	assert.Equal(t, seq.Errors, par.Errors)
	assert.Equal(t, seqFiles, parFiles)
}

func TestProcessVault_Progress(t *testing.T) {
	testutil.VerifyNoLeaks(t)

	files := map[string]string{}
	for i := range 25 {
		files[fmt.Sprintf("n%02d.md", i)] = "# x\n"
	}
	fs := testutil.NewVault(t, files)
	e := newEngine(t, fs, requiredFields(t))

	var (
		mu       sync.Mutex
		currents []int
		totals   []int
	)
	_, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Parallel: true, MaxConcurrency: 4},
		func(current, total int, message string) {
			mu.Lock()
			defer mu.Unlock()
			currents = append(currents, current)
			totals = append(totals, total)
		})
	require.NoError(t, err)

	require.Len(t, currents, 25)
	for i, c := range currents {
		assert.Equal(t, i+1, c)
		assert.Equal(t, 25, totals[i])
	}
}

func TestProcessVault_Cancellation(t *testing.T) {
	files := map[string]string{}
	for i := range 10 {
		files[fmt.Sprintf("n%02d.md", i)] = "# x\n"
	}
	fs := testutil.NewVault(t, files)
	e := newEngine(t, fs, requiredFields(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := e.ProcessVault(ctx, root, core.ProcessOptions{Fix: true}, func(current, _ int, _ string) {
		if current == 3 {
			cancel()
		}
	})

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.FilesProcessed)
	assert.Len(t, result.IssuesFound, 6, "title and status for each linted file")
	assert.Empty(t, result.FixesApplied)
	assert.Equal(t, StateAborted, e.State())
	assert.Equal(t, "# x\n", testutil.ReadFile(t, fs, "n00.md"), "no fixes after cancellation")
}

func TestProcessVault_RuleSelection(t *testing.T) {
	fs := testutil.NewVault(t, map[string]string{"My Note.md": "# x\n"})
	e := newEngine(t, fs, requiredFields(t), kebabCase(t))

	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{
		Rules: []string{"file-naming.kebab-case"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, result.IssuesFound, 1)
	assert.Equal(t, "file-naming.kebab-case", result.IssuesFound[0].RuleID)
}

func TestProcessVault_WriteFailure(t *testing.T) {
	base := testutil.NewVault(t, map[string]string{"a.md": "# x\n"})
	fs := afero.NewReadOnlyFs(base)
	e := newEngine(t, fs, requiredFields(t))

	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Fix: true}, nil)
	require.NoError(t, err)

	assert.Empty(t, result.FixesApplied)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.StageWrite, result.Errors[0].Stage)
}

// editingParser rewrites a file the second time it is parsed, which is the
// first parse of the fix phase.
type editingParser struct {
	Parser
	fs    afero.Fs
	path  string
	edit  string
	mu    sync.Mutex
	calls int
}

func (p *editingParser) Parse(path string, content []byte) (*core.ParsedDocument, error) {
	p.mu.Lock()
	if path == p.path {
		p.calls++
		if p.calls == 2 {
			if err := afero.WriteFile(p.fs, root+"/"+path, []byte(p.edit), 0o644); err != nil {
				p.mu.Unlock()
				return nil, err
			}
		}
	}
	p.mu.Unlock()
	return p.Parser.Parse(path, content)
}

func TestProcessVault_ExternalEditDuringFix(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		body  string
		rule  func(*testing.T) lint.Rule
		id    string
		files []string
	}{
		{
			name:  "content fix",
			file:  "review.md",
			body:  "---\ntitle: Weekly review\n---\n# Notes\n",
			rule:  requiredFields,
			id:    "frontmatter-required-fields.strict",
			files: []string{"review.md"},
		},
		{
			name:  "rename",
			file:  "My Note.md",
			body:  "# x\n",
			rule:  kebabCase,
			id:    "file-naming.kebab-case",
			files: []string{"My Note.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := testutil.NewVault(t, map[string]string{tt.file: tt.body})
			edit := "USER EDIT\n"
			e := New(Config{
				Rules:  []lint.Rule{tt.rule(t)},
				FS:     fs,
				Parser: &editingParser{Parser: markdown.New(), fs: fs, path: tt.file, edit: edit},
				Logger: testutil.NewTestLogger(t),
			})

			result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{Fix: true, Backup: true}, nil)
			require.NoError(t, err)

			assert.Empty(t, result.FixesApplied)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, core.StageFix, result.Errors[0].Stage)
			assert.Equal(t, tt.id, result.Errors[0].RuleID)
			assert.Contains(t, result.Errors[0].Message, "changed on disk")
			assert.Equal(t, edit, testutil.ReadFile(t, fs, tt.file))
			assert.Equal(t, tt.files, testutil.ListFiles(t, fs), "no backup or rename")
		})
	}
}

// openRecorder records the files opened through it.
type openRecorder struct {
	afero.Fs
	mu     sync.Mutex
	opened []string
}

func (o *openRecorder) Open(name string) (afero.File, error) {
	o.mu.Lock()
	o.opened = append(o.opened, name)
	o.mu.Unlock()
	return o.Fs.Open(name)
}

func TestProcessVault_SkipsReadWithoutApplicableRules(t *testing.T) {
	fs := &openRecorder{Fs: testutil.NewVault(t, map[string]string{
		"notes/a.md":       "---\ntitle: A\nstatus: done\n---\n",
		"assets/large.png": strings.Repeat("x", 1<<16),
	})}
	e := newEngine(t, fs, requiredFields(t))

	result, err := e.ProcessVault(context.Background(), root, core.ProcessOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesProcessed)
	assert.Empty(t, result.Errors)
	assert.Contains(t, fs.opened, root+"/notes/a.md")
	assert.NotContains(t, fs.opened, root+"/assets/large.png")
}

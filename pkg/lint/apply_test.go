package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

func TestApplyChanges(t *testing.T) {
	const content = "hello world\n"

	tests := []struct {
		name       string
		changes    []core.FileChange
		want       string
		wantRename string
		wantErr    error
	}{
		{
			name: "no changes",
			want: content,
		},
		{
			name:    "single insert",
			changes: []core.FileChange{core.Insert(5, ",")},
			want:    "hello, world\n",
		},
		{
			name: "edits applied against original offsets",
			changes: []core.FileChange{
				core.ReplaceRange(core.Range{Start: 6, End: 11}, "world", "there"),
				core.ReplaceRange(core.Range{Start: 0, End: 5}, "hello", "hi"),
			},
			want: "hi there\n",
		},
		{
			name:    "two inserts at the same offset keep order",
			changes: []core.FileChange{core.Insert(0, "a"), core.Insert(0, "b")},
			want:    "ab" + content,
		},
		{
			name:    "whole replacement",
			changes: []core.FileChange{core.ReplaceContent("new\n")},
			want:    "new\n",
		},
		{
			name:       "rename only",
			changes:    []core.FileChange{core.Rename("./dir/new.md")},
			want:       content,
			wantRename: "dir/new.md",
		},
		{
			name:    "out of bounds",
			changes: []core.FileChange{core.Insert(100, "x")},
			wantErr: ErrRangeOutOfBounds,
		},
		{
			name: "overlap",
			changes: []core.FileChange{
				{Kind: core.ChangeEdit, Start: 0, End: 5, NewText: "a"},
				{Kind: core.ChangeEdit, Start: 3, End: 8, NewText: "b"},
			},
			wantErr: ErrOverlappingEdits,
		},
		{
			name:    "stale range",
			changes: []core.FileChange{core.ReplaceRange(core.Range{Start: 0, End: 5}, "HELLO", "x")},
			wantErr: ErrStaleRange,
		},
		{
			name:    "replace mixed with edit",
			changes: []core.FileChange{core.ReplaceContent("x"), core.Insert(0, "y")},
			wantErr: ErrMixedReplace,
		},
		{
			name:    "rename escaping vault",
			changes: []core.FileChange{core.Rename("../outside.md")},
			wantErr: ErrInvalidRename,
		},
		{
			name:    "conflicting renames",
			changes: []core.FileChange{core.Rename("a.md"), core.Rename("b.md")},
			wantErr: ErrInvalidRename,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rename, err := ApplyChanges(content, tt.changes)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRename, rename)
		})
	}
}

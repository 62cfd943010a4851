package lint

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// Errors returned by ApplyChanges. They describe why a rule's changes were
// refused for a file.
var (
	ErrRangeOutOfBounds = errors.New("edit range out of bounds")
	ErrOverlappingEdits = errors.New("overlapping edits")
	ErrStaleRange       = errors.New("edit range no longer matches expected text")
	ErrMixedReplace     = errors.New("whole-content replacement combined with other edits")
	ErrInvalidRename    = errors.New("invalid rename target")
)

// ApplyChanges applies one fix set to content and returns the new content
// and the rename target ("" when the file keeps its path).
//
// Edit offsets refer to the original content. Edits are applied as a unit:
// if any change is invalid, nothing is applied and an error is returned.
func ApplyChanges(content string, changes []core.FileChange) (string, string, error) {
	var (
		edits    []core.FileChange
		replaces []core.FileChange
		rename   string
	)
	for _, c := range changes {
		switch c.Kind {
		case core.ChangeEdit:
			edits = append(edits, c)
		case core.ChangeReplace:
			replaces = append(replaces, c)
		case core.ChangeRename:
			target, err := cleanRenameTarget(c.NewPath)
			if err != nil {
				return "", "", err
			}
			if rename != "" && rename != target {
				return "", "", fmt.Errorf("%w: conflicting targets %q and %q", ErrInvalidRename, rename, target)
			}
			rename = target
		default:
			return "", "", fmt.Errorf("unknown change kind %q", c.Kind)
		}
	}

	if len(replaces) > 0 {
		if len(replaces) > 1 || len(edits) > 0 {
			return "", "", ErrMixedReplace
		}
		return replaces[0].NewText, rename, nil
	}

	out, err := applyEdits(content, edits)
	if err != nil {
		return "", "", err
	}
	return out, rename, nil
}

func applyEdits(content string, edits []core.FileChange) (string, error) {
	if len(edits) == 0 {
		return content, nil
	}
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b core.FileChange) int { return a.Start - b.Start })

	prevEnd := 0
	for _, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(content) {
			return "", fmt.Errorf("%w: [%d,%d) in %d bytes", ErrRangeOutOfBounds, e.Start, e.End, len(content))
		}
		if e.Start < prevEnd {
			return "", fmt.Errorf("%w at offset %d", ErrOverlappingEdits, e.Start)
		}
		if e.Expected != "" && content[e.Start:e.End] != e.Expected {
			return "", fmt.Errorf("%w at offset %d", ErrStaleRange, e.Start)
		}
		prevEnd = e.End
	}

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, e := range sorted {
		b.WriteString(content[last:e.Start])
		b.WriteString(e.NewText)
		last = e.End
	}
	b.WriteString(content[last:])
	return b.String(), nil
}

// cleanRenameTarget validates a vault-relative rename target.
func cleanRenameTarget(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidRename)
	}
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q escapes the vault", ErrInvalidRename, p)
	}
	return clean, nil
}

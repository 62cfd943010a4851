package lint

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ShouldApply decides whether a rule configured with cfg applies to path.
//
// Precedence:
//  1. any path_denylist match excludes
//  2. a non-empty path_allowlist without a match excludes
//  3. any exclude_patterns match excludes
//  4. non-empty include_patterns without a match excludes
//  5. otherwise the rule applies
func ShouldApply(cfg RuleConfig, path string) bool {
	p := NormalizePath(path)
	if MatchAny(cfg.PathDenylist, p) {
		return false
	}
	if len(cfg.PathAllowlist) > 0 && !MatchAny(cfg.PathAllowlist, p) {
		return false
	}
	if MatchAny(cfg.ExcludePatterns, p) {
		return false
	}
	if len(cfg.IncludePatterns) > 0 && !MatchAny(cfg.IncludePatterns, p) {
		return false
	}
	return true
}

// MatchAny reports whether any pattern matches the normalized path.
// Invalid patterns never match.
func MatchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(normalizePattern(pattern), path); err == nil && ok {
			return true
		}
	}
	return false
}

// NormalizePath converts a path to the vault-relative, forward-slash form
// used for matching.
func NormalizePath(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	if p == "." {
		return ""
	}
	return p
}

func normalizePattern(pattern string) string {
	p := strings.TrimSpace(filepath.ToSlash(pattern))
	p = strings.TrimPrefix(p, "./")
	return strings.TrimLeft(p, "/")
}

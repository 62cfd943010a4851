package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultlint/pkg/core"
)

func buildAll(t *testing.T, ids ...string) []Rule {
	t.Helper()
	rules := make([]Rule, 0, len(ids))
	for _, id := range ids {
		r, err := Build(id, RuleConfig{})
		require.NoError(t, err)
		rules = append(rules, r)
	}
	return rules
}

func TestValidateRuleConflicts(t *testing.T) {
	registerTestFamily(t, "naming", "kebab-case", "camelCase", "snake")
	registerTestFamily(t, "fields", "strict")

	tests := []struct {
		name          string
		ids           []string
		opts          ConflictOptions
		wantValid     bool
		wantConflicts []Conflict
		wantWarnings  []string
	}{
		{
			name:          "one variant per family",
			ids:           []string{"naming.kebab-case", "fields.strict"},
			wantValid:     true,
			wantConflicts: []Conflict{},
		},
		{
			name:      "two naming variants rejected",
			ids:       []string{"naming.kebab-case", "fields.strict", "naming.camelCase"},
			opts:      ConflictOptions{Policy: PolicyReject},
			wantValid: false,
			wantConflicts: []Conflict{{
				MajorID:    "naming",
				Members:    []string{"naming.kebab-case", "naming.camelCase"},
				Resolution: "reject profile",
			}},
		},
		{
			name:      "first wins resolution text",
			ids:       []string{"naming.snake", "naming.kebab-case", "naming.camelCase"},
			opts:      ConflictOptions{Policy: PolicyFirstWins},
			wantValid: false,
			wantConflicts: []Conflict{{
				MajorID:    "naming",
				Members:    []string{"naming.snake", "naming.kebab-case", "naming.camelCase"},
				Resolution: "first-loaded wins: naming.snake",
			}},
		},
		{
			name:          "missing required family is a warning",
			ids:           []string{"naming.kebab-case"},
			opts:          ConflictOptions{RequiredFamilies: []string{"naming", "fields"}},
			wantValid:     true,
			wantConflicts: []Conflict{},
			wantWarnings:  []string{"fields"},
		},
		{
			name:          "empty rule set",
			wantValid:     true,
			wantConflicts: []Conflict{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := buildAll(t, tt.ids...)

			result := ValidateRuleConflicts(rules, tt.opts)

			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantConflicts, result.Conflicts)
			var warned []string
			for _, w := range result.Warnings {
				warned = append(warned, w.MajorID)
			}
			assert.Equal(t, tt.wantWarnings, warned)
		})
	}
}

func TestValidateRuleConflicts_DoesNotMutateInput(t *testing.T) {
	registerTestFamily(t, "naming", "a", "b")
	rules := buildAll(t, "naming.b", "naming.a")
	before := append([]Rule(nil), rules...)

	first := ValidateRuleConflicts(rules, ConflictOptions{})
	second := ValidateRuleConflicts(rules, ConflictOptions{})

	assert.Equal(t, before, rules)
	assert.Equal(t, first, second)
}

func TestResolveConflicts(t *testing.T) {
	registerTestFamily(t, "naming", "a", "b")
	registerTestFamily(t, "fields", "strict")
	rules := buildAll(t, "naming.b", "fields.strict", "naming.a")

	result := ValidateRuleConflicts(rules, ConflictOptions{Policy: PolicyReject})
	_, err := ResolveConflicts(rules, result, PolicyReject)
	var ce *core.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"naming"}, ce.Families)

	kept, err := ResolveConflicts(rules, result, PolicyFirstWins)
	require.NoError(t, err)
	var ids []string
	for _, r := range kept {
		ids = append(ids, r.ID().Full)
	}
	assert.Equal(t, []string{"naming.b", "fields.strict"}, ids)
	assert.Len(t, rules, 3)
}

func TestParseConflictPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ConflictPolicy
		wantErr bool
	}{
		{"", PolicyReject, false},
		{"reject", PolicyReject, false},
		{"First-Wins", PolicyFirstWins, false},
		{"last-wins", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConflictPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

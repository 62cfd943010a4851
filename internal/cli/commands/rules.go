package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultlint/internal/cli/output"
	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Category string // Filter by category
	Fixable  bool   // Only variants that can fix
	Format   string // Output format
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [family]",
		Short: "List available rule families and variants",
		Long: `List every rule variant the registry can build.

A rule id has the form <family>.<variant>. A profile may enable at most one
variant per family; see 'vaultlint profiles validate'.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all variants
  vaultlint rules

  # Show the variants of one family
  vaultlint rules file-naming

  # Only variants that can fix what they find
  vaultlint rules --fixable

  # Output as JSON
  vaultlint rules --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family := ""
			if len(args) > 0 {
				family = args[0]
			}
			return runRules(cmd, family, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "Filter by category")
	cmd.Flags().BoolVar(&opts.Fixable, "fixable", false, "Only show fixable variants")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

// RulesJSONOutput is the JSON output structure for rules listing.
type RulesJSONOutput struct {
	Rules []lint.RuleInfo `json:"rules"`
	Count int             `json:"count"`
}

func runRules(cmd *cobra.Command, family string, opts *RulesOptions) error {
	mode, err := output.ParseMode(opts.Format)
	if err != nil {
		return err
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	if family != "" {
		if _, ok := lint.LookupFamily(family); !ok {
			return fmt.Errorf("unknown rule family %q (available: %s)", family, strings.Join(familyNames(), ", "))
		}
	}

	rules := filterRules(catalogInfo(family), opts)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(RulesJSONOutput{Rules: rules, Count: len(rules)})
	}

	r.Header(fmt.Sprintf("Rules (%d)", len(rules)))

	rows := make([][]string, 0, len(rules))
	for _, info := range rules {
		fixable := "no"
		if info.Fixable {
			fixable = "yes"
		}
		rows = append(rows, []string{info.ID, info.Category, fixable, info.Description})
	}
	r.Table([]string{"ID", "Category", "Fixable", "Description"}, rows)

	if r.EffectiveMode() == output.ModeText {
		r.Println("")
		r.Println(r.Muted("Enable a variant by listing its id in a profile's enabled_rules"))
	}
	return nil
}

// catalogInfo describes every variant of the registry, or of one family.
// Variants are built with an empty config so their metadata can be read.
func catalogInfo(family string) []lint.RuleInfo {
	var out []lint.RuleInfo
	for _, fam := range lint.Families() {
		if family != "" && fam.Major != family {
			continue
		}
		for _, variant := range fam.Variants {
			id := core.NewRuleID(fam.Major, variant)
			rule, err := lint.Build(id.Full, lint.RuleConfig{})
			if err != nil {
				out = append(out, lint.RuleInfo{
					ID:          id.Full,
					Family:      fam.Major,
					Variant:     variant,
					Description: fam.Description,
				})
				continue
			}
			out = append(out, lint.GetRuleInfo(rule))
		}
	}
	return out
}

func filterRules(rules []lint.RuleInfo, opts *RulesOptions) []lint.RuleInfo {
	if opts.Category == "" && !opts.Fixable {
		return rules
	}
	var filtered []lint.RuleInfo
	for _, r := range rules {
		if opts.Category != "" && !strings.EqualFold(r.Category, opts.Category) {
			continue
		}
		if opts.Fixable && !r.Fixable {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func familyNames() []string {
	fams := lint.Families()
	names := make([]string, len(fams))
	for i, f := range fams {
		names[i] = f.Major
	}
	return names
}

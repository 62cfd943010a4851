package commands

import (
	"github.com/spf13/cobra"
)

// NewFixCommand creates the fix command, a shorthand for lint --fix.
func NewFixCommand() *cobra.Command {
	opts := &LintOptions{Fix: true}
	cmd := &cobra.Command{
		Use:   "fix [vault]",
		Short: "Lint an Obsidian vault and apply fixes",
		Long: `Same as lint --fix: lint every file, then apply the fixes of fixable
rules. Use --dry-run to see the fixes without writing.

Exit status is 1 when issues were found.`,
		Example: `  # Fix the vault configured in vaultlint.yaml
  vaultlint fix

  # Preview fixes for a vault as JSON
  vaultlint fix ~/Notes --dry-run --format json`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{vaultArgAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args, opts)
		},
	}

	addLintFlags(cmd, opts)
	return cmd
}

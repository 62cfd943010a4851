package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultlint/internal/cli/output"
)

// LintOptions holds options for the lint command. Options that also exist in
// vaultlint.yaml (fix, dry-run, ignore, ...) are read from the configuration,
// which already contains changed flags.
type LintOptions struct {
	Format      string   // Output format: auto, text, markdown, json
	Rules       []string // Run only specific rules
	GenerateMOC bool     // Write _MOC.md notes
	NoProgress  bool     // Disable the progress bar
	Fix         bool     // Apply fixes regardless of configuration (fix command)
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [vault]",
		Short: "Lint an Obsidian vault",
		Long: `Check every note and attachment in a vault against the rules of the
active profile and optionally fix what can be fixed.

Rules come from the profile's rules_path directory of declarations and its
enabled_rules list. Conflicting variants of one rule family are rejected
unless general.conflict_policy is first-wins.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format

Exit status is 1 when issues were found.`,
		Example: `  # Lint the vault configured in vaultlint.yaml
  vaultlint lint

  # Lint a vault directory with a specific profile
  vaultlint lint ~/Notes --profile strict

  # Show what would be fixed without touching files
  vaultlint lint --fix --dry-run

  # Fix, keeping .bak copies of rewritten notes
  vaultlint lint --fix --backup

  # Only run one rule and print JSON
  vaultlint lint --rule file-naming.kebab-case --format json`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{vaultArgAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args, opts)
		},
	}

	cmd.Flags().Bool("fix", false, "Apply fixes")
	addLintFlags(cmd, opts)

	return cmd
}

// addLintFlags adds the flags shared by lint and fix.
func addLintFlags(cmd *cobra.Command, opts *LintOptions) {
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: auto, text, markdown, json")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run only specific rules (full ids)")
	cmd.Flags().BoolVar(&opts.GenerateMOC, "generate-moc", false, "Generate a _MOC.md map of content per folder")
	cmd.Flags().BoolVar(&opts.NoProgress, "no-progress", false, "Disable the progress bar")
	addRunFlags(cmd)
	cmd.Flags().Bool("dry-run", false, "Compute fixes without writing")
	cmd.Flags().Bool("backup", false, "Copy files to the backup directory before rewriting them")
	cmd.Flags().String("backup-dir", "", "Backup directory, relative to the vault")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// addRunFlags adds the configuration-backed flags shared by lint and watch.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("ignore", nil, "Glob of vault paths to skip (repeatable)")
	cmd.Flags().Bool("parallel", true, "Process files concurrently")
	cmd.Flags().Int("max-concurrency", 0, "Maximum concurrent files (0 = default)")
	cmd.Flags().String("conflict-policy", "", "Conflicting rule variants: reject or first-wins")
}

func runLint(cmd *cobra.Command, args []string, opts *LintOptions) error {
	cmdCtx, err := NewCommandContext(cmd, args, opts.Format)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	vault, err := cmdCtx.VaultRoot(args)
	if err != nil {
		return err
	}
	rules, err := cmdCtx.LoadRules("")
	if err != nil {
		return err
	}

	processOpts := cmdCtx.ProcessOptions(vault)
	processOpts.Rules = opts.Rules
	processOpts.GenerateMOC = opts.GenerateMOC
	if opts.Fix {
		processOpts.Fix = true
	}

	progress := output.NewProgress(r.ErrWriter(), !opts.NoProgress && r.EffectiveMode() != output.ModeJSON)
	eng := cmdCtx.NewEngine(rules)

	result, runErr := eng.ProcessVault(cmd.Context(), vault, processOpts, progress.Update)
	progress.Done()
	if result == nil {
		return runErr
	}

	if err := r.LintResult(result, processOpts.DryRun); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if result.HasIssues() {
		return ErrIssuesFound
	}
	return nil
}

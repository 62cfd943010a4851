// Package cli provides the command-line interface for vaultlint.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultlint/internal/cli/commands"
	"github.com/leapstack-labs/vaultlint/internal/cli/config"
)

// Version is set at build time.
var Version = "0.1.0"

// skipConfig lists commands that run without loading vaultlint.yaml.
var skipConfig = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
	"init":       true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vaultlint",
		Short: "vaultlint - Obsidian vault linter",
		Long: `vaultlint checks the notes and attachments of an Obsidian vault against
pluggable rules and fixes what it can.

Rules are grouped in families with interchangeable variants. A profile
enables one variant per family; conflicting profiles are rejected.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipConfig[cmd.Name()] {
				return nil
			}

			cfg, err := commands.LoadConfig(cmd, args)
			if err != nil {
				return err
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.General.LogLevel, cfg.General.Verbose)
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().String("config", "", "config file (default: vaultlint.yaml in the vault or a parent directory)")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "Profile to use (default: active_profile)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewLintCommand())
	rootCmd.AddCommand(commands.NewFixCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewProfilesCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command with args and reports errors on stderr.
// Found issues are not printed as an error; the caller maps them to exit 1.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, commands.ErrIssuesFound) {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return err
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for vaultlint.

To load completions:

Bash:
  $ source <(vaultlint completion bash)

Zsh:
  $ vaultlint completion zsh > "${fpath[1]}/_vaultlint"

Fish:
  $ vaultlint completion fish | source

PowerShell:
  PS> vaultlint completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}

// Main runs the CLI with the process arguments and returns the exit status:
// 0 when no issues were found, 1 for issues or any error.
func Main(ctx context.Context) int {
	if err := Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		return 1
	}
	return 0
}

package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultlint/internal/cli/output"
	"github.com/leapstack-labs/vaultlint/internal/config"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Force  bool
	Format string
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}
	cmd := &cobra.Command{
		Use:   "init [vault]",
		Short: "Add a vaultlint configuration to a vault",
		Long: `Initialize vaultlint in a vault directory.

This creates:
  - vaultlint.yaml with a default and a strict profile
  - .vaultlint/rules/default/ rule declarations for the default profile
  - .vaultlint/rules/strict/ rule declarations for the strict profile

Existing files are kept unless --force is given.`,
		Example: `  # Initialize the vault in the current directory
  vaultlint init

  # Initialize another vault
  vaultlint init ~/Notes

  # Overwrite an existing configuration
  vaultlint init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			mode, err := output.ParseMode(opts.Format)
			if err != nil {
				return err
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			return runInit(afero.NewOsFs(), r, dir, opts.Force)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: auto, text, markdown")

	return cmd
}

func runInit(fsys afero.Fs, r *output.Renderer, dir string, force bool) error {
	if err := fsys.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if ok, _ := afero.Exists(fsys, configPath); ok && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	files, err := copyTemplate(fsys, "default", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}

	for _, f := range files {
		r.Success(f)
	}
	r.Println("")
	r.Success("vaultlint initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Adjust the rule declarations in .vaultlint/rules/")
	r.Println("  2. Run 'vaultlint profiles validate' to check for conflicts")
	r.Println("  3. Run 'vaultlint lint' to see issues")
	r.Println("  4. Run 'vaultlint lint --fix --dry-run' to preview fixes")

	return nil
}

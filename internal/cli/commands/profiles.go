package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultlint/internal/cli/output"
	"github.com/leapstack-labs/vaultlint/pkg/core"
	"github.com/leapstack-labs/vaultlint/pkg/lint"
)

// ProfilesOptions holds options for the profiles commands.
type ProfilesOptions struct {
	Format string // Output format
}

// NewProfilesCommand creates the profiles command and its validate subcommand.
func NewProfilesCommand() *cobra.Command {
	opts := &ProfilesOptions{}
	cmd := &cobra.Command{
		Use:   "profiles [name]",
		Short: "List configured profiles",
		Long: `List the profiles defined in vaultlint.yaml, or show one profile. The
active profile is marked with '*'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runProfiles(cmd, name, opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")
	cmd.PersistentFlags().String("conflict-policy", "", "Conflicting rule variants: reject or first-wins")

	cmd.AddCommand(newProfilesValidateCommand(opts))
	return cmd
}

func newProfilesValidateCommand(opts *ProfilesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [profile]",
		Short: "Check a profile for conflicting rule variants",
		Long: `Load the rules of a profile and report every family with more than one
enabled variant, and every required family with none.

Under conflict_policy reject any conflict makes the command fail.`,
		Example: `  # Validate the active profile
  vaultlint profiles validate

  # Validate another profile as JSON
  vaultlint profiles validate strict --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runProfilesValidate(cmd, name, opts)
		},
	}
}

// ProfileJSON is the JSON form of one profile.
type ProfileJSON struct {
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	RulesPath        string   `json:"rules_path,omitempty"`
	EnabledRules     []string `json:"enabled_rules,omitempty"`
	RequiredFamilies []string `json:"required_families,omitempty"`
	Active           bool     `json:"active"`
}

func runProfiles(cmd *cobra.Command, only string, opts *ProfilesOptions) error {
	cmdCtx, err := NewCommandContext(cmd, nil, opts.Format)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	cfg := cmdCtx.Cfg

	names := cfg.ProfileNames()
	if only != "" {
		names = []string{only}
	}

	profiles := make([]ProfileJSON, 0, len(names))
	for _, name := range names {
		p, err := cfg.Profile(name)
		if err != nil {
			return err
		}
		profiles = append(profiles, ProfileJSON{
			Name:             name,
			Description:      p.Description,
			RulesPath:        p.RulesPath,
			EnabledRules:     p.EnabledRules,
			RequiredFamilies: p.RequiredFamilies,
			Active:           name == cfg.ActiveProfile,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(profiles)
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		name := p.Name
		if p.Active {
			name += " *"
		}
		rows = append(rows, []string{name, p.RulesPath, strings.Join(p.EnabledRules, ", "), p.Description})
	}
	r.Table([]string{"Profile", "Rules Path", "Enabled Rules", "Description"}, rows)
	return nil
}

// ProfileValidationJSON is the JSON output of profiles validate.
type ProfileValidationJSON struct {
	Profile string   `json:"profile"`
	Policy  string   `json:"policy"`
	Rules   []string `json:"rules"`
	lint.ValidationResult
}

func runProfilesValidate(cmd *cobra.Command, name string, opts *ProfilesOptions) error {
	cmdCtx, err := NewCommandContext(cmd, nil, opts.Format)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	pr, err := cmdCtx.LoadProfile(name)
	if err != nil {
		return err
	}

	ids := make([]string, len(pr.Rules))
	for i, rule := range pr.Rules {
		ids[i] = rule.ID().Full
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(ProfileValidationJSON{
			Profile:          pr.Profile.Name,
			Policy:           string(pr.Policy),
			Rules:            ids,
			ValidationResult: pr.Validation,
		}); err != nil {
			return err
		}
	} else {
		renderValidation(r, pr, ids)
	}

	if !pr.Validation.Valid && pr.Policy == lint.PolicyReject {
		majors := make([]string, len(pr.Validation.Conflicts))
		for i, c := range pr.Validation.Conflicts {
			majors[i] = c.MajorID
		}
		return &core.ConflictError{Families: majors}
	}
	return nil
}

func renderValidation(r *output.Renderer, pr *ProfileRules, ids []string) {
	r.Header(fmt.Sprintf("Profile %s (%d rules, policy %s)", pr.Profile.Name, len(ids), pr.Policy))
	for _, id := range ids {
		r.Println("  " + id)
	}
	r.Println("")

	for _, c := range pr.Validation.Conflicts {
		r.Warning(fmt.Sprintf("conflict in %s: %s (%s)", c.MajorID, strings.Join(c.Members, ", "), c.Resolution))
	}
	for _, w := range pr.Validation.Warnings {
		r.Warning(w.Message)
	}
	if pr.Validation.Valid && len(pr.Validation.Warnings) == 0 {
		r.Success("no conflicts")
	}
}

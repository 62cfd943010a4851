package commands

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultlint/internal/cli/output"
	"github.com/leapstack-labs/vaultlint/internal/engine"
	"github.com/leapstack-labs/vaultlint/internal/watch"
	"github.com/leapstack-labs/vaultlint/pkg/core"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Format   string
	Rules    []string
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch [vault]",
		Short: "Re-lint notes as they change",
		Long: `Watch a vault and lint each changed file once it has been quiet for the
debounce interval. Watch mode never writes to the vault.

Stop with Ctrl-C.`,
		Example: `  # Watch the configured vault
  vaultlint watch

  # Watch a vault with a longer quiet period
  vaultlint watch ~/Notes --debounce 1s`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{vaultArgAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: auto, text, markdown, json")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run only specific rules (full ids)")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is linted")
	addRunFlags(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
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
	eng := cmdCtx.NewEngine(rules)

	lintOpts := cmdCtx.ProcessOptions(vault)
	lintOpts.Rules = opts.Rules
	lintOpts.Fix = false

	w, err := watch.New(watch.Config{
		Root:     vault,
		Ignore:   lintOpts.Ignore,
		Skip:     []string{engine.MOCFileName},
		Debounce: opts.Debounce,
		Logger:   cmdCtx.Logger,
		OnChange: relintHandler(eng, r, vault, lintOpts),
	})
	if err != nil {
		return err
	}

	if r.EffectiveMode() != output.ModeJSON {
		r.Println(r.Muted("Watching " + vault + " (Ctrl-C to stop)"))
	}
	return w.Run(cmd.Context())
}

// relintHandler lints one changed file and renders the result. Results of
// concurrent handlers are written one at a time.
func relintHandler(eng *engine.Engine, r *output.Renderer, vault string, opts core.ProcessOptions) watch.Handler {
	var mu sync.Mutex
	return func(ctx context.Context, rel string) {
		res, err := eng.LintFile(ctx, vault, rel, opts)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.Error(rel + ": " + err.Error())
			}
			return
		}
		if err := r.LintResult(res, false); err != nil {
			r.Error(err.Error())
		}
	}
}

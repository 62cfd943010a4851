package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultlint/internal/cli/config"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "vaultlint", cmd.Use)
	for _, flag := range []string{"config", "profile", "verbose", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	for _, name := range []string{"lint", "fix", "rules", "profiles", "watch", "init", "version", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestPersistentPreRun_StoresConfigAndLogger(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	lint, _, err := cmd.Find([]string{"lint"})
	require.NoError(t, err)
	lint.SetContext(context.Background())
	require.NoError(t, lint.ParseFlags([]string{"--verbose", "--max-concurrency", "2"}))

	require.NoError(t, cmd.PersistentPreRunE(lint, nil))

	loaded, ok := config.GetConfig(lint.Context())
	require.True(t, ok)
	assert.True(t, loaded.General.Verbose)
	assert.Equal(t, 2, loaded.General.MaxConcurrency)
	assert.True(t, config.GetLogger(lint.Context()).Enabled(context.Background(), -4))
}

func TestPersistentPreRun_SkipsConfigFreeCommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"version", "init"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		sub.SetContext(context.Background())

		require.NoError(t, cmd.PersistentPreRunE(sub, nil))
		_, ok := config.GetConfig(sub.Context())
		assert.False(t, ok, name)
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
			err := Execute(context.Background(), []string{"completion", shell}, stdout, stderr)
			require.NoError(t, err)
			assert.Contains(t, stdout.String(), "vaultlint")
		})
	}
}

func TestExecute_ReportsErrors(t *testing.T) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	err := Execute(context.Background(), []string{"rules", "--format", "yaml"}, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Error:")
}

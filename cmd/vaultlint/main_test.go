// Package main provides tests for the vaultlint CLI.
package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/vaultlint/internal/cli"
	"github.com/leapstack-labs/vaultlint/internal/cli/commands"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	err := cli.Execute(context.Background(), args, stdout, stderr)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(out, "vaultlint") {
		t.Errorf("version output should contain 'vaultlint', got: %s", out)
	}
}

func TestHelpCommand(t *testing.T) {
	out, _, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help command error = %v", err)
	}
	for _, expected := range []string{"lint", "rules", "profiles", "watch", "init", "version"} {
		if !strings.Contains(out, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, out)
		}
	}
}

func TestLintExitStatus(t *testing.T) {
	vault := t.TempDir()
	if _, _, err := run(t, "init", vault); err != nil {
		t.Fatalf("init: %v", err)
	}

	writeFile(t, filepath.Join(vault, "clean-note.md"), "---\ntitle: Clean\ntags: [a]\nstatus: done\n---\nBody\n")
	_, stderr, err := run(t, "lint", vault, "--no-progress", "--format", "text")
	if err != nil {
		t.Fatalf("clean vault: err = %v, stderr = %s", err, stderr)
	}

	writeFile(t, filepath.Join(vault, "Dirty Note.md"), "Body\n")
	out, stderr, err := run(t, "lint", vault, "--no-progress", "--format", "markdown")
	if !errors.Is(err, commands.ErrIssuesFound) {
		t.Fatalf("dirty vault: err = %v, want ErrIssuesFound", err)
	}
	if strings.Contains(stderr, "Error:") {
		t.Errorf("issues must not be reported as an error, stderr: %s", stderr)
	}
	if !strings.Contains(out, "Dirty Note.md") {
		t.Errorf("output should name the file, got: %s", out)
	}
}

func TestConfigErrors(t *testing.T) {
	vault := t.TempDir()
	writeFile(t, filepath.Join(vault, "vaultlint.yaml"), "general:\n  conflict_policy: maybe\n")

	_, stderr, err := run(t, "lint", vault, "--no-progress")
	if err == nil {
		t.Fatal("expected a configuration error")
	}
	if !strings.Contains(stderr, "Error:") {
		t.Errorf("stderr should report the error, got: %s", stderr)
	}

	_, _, err = run(t, "lint", vault, "--config", filepath.Join(vault, "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing --config file")
	}
}

func TestProfileFlag(t *testing.T) {
	vault := t.TempDir()
	if _, _, err := run(t, "init", vault); err != nil {
		t.Fatalf("init: %v", err)
	}
	writeFile(t, filepath.Join(vault, "note.md"), "---\ntitle: N\ntags: [a]\nstatus: done\n---\n<b>bold</b>\n")

	if _, _, err := run(t, "lint", vault, "--no-progress"); err != nil {
		t.Fatalf("default profile: err = %v", err)
	}
	out, _, err := run(t, "lint", vault, "--no-progress", "--format", "json", "-p", "strict")
	if !errors.Is(err, commands.ErrIssuesFound) {
		t.Fatalf("strict profile: err = %v, want ErrIssuesFound", err)
	}
	if !strings.Contains(out, "inline-html.convert") {
		t.Errorf("strict profile should report inline html, got: %s", out)
	}
}

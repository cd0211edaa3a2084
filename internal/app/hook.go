package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// InstallHook installs the prepare-commit-msg hook
func InstallHook(ctx context.Context) error {
	gitDir := ".git"
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		return fmt.Errorf("current directory is not a git repository root (no .git found)")
	}

	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0755); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}

	hookPath := filepath.Join(hooksDir, "prepare-commit-msg")

	if _, err := os.Stat(hookPath); err == nil {
		return fmt.Errorf("hook %s already exists. Please remove it first", hookPath)
	}

	exe, err := os.Executable()
	if err != nil {
		exe = "commitstream" // fallback
	} else {
		exe, _ = filepath.Abs(exe)
	}

	script := fmt.Sprintf(`#!/bin/sh
# commitstream hook
# Runs commitstream to draft the commit message, streaming into the
# message file. Uses /dev/tty so the interactive UI works inside a hook.

# $1 is file, $2 is source, $3 is SHA
COMMIT_MSG_FILE=$1
COMMIT_SOURCE=$2
SHA1=$3

# If a message was already provided (-m, merge, squash), stay out of the way.
if [ "$COMMIT_SOURCE" = "message" ]; then
  exit 0
fi

if [ -t 0 ]; then
    exec < /dev/tty
fi

echo "commitstream is analyzing changes..."
"%s" hook "$COMMIT_MSG_FILE" < /dev/tty > /dev/tty
`, exe)

	if err := os.WriteFile(hookPath, []byte(script), 0755); err != nil {
		return fmt.Errorf("write hook file: %w", err)
	}

	fmt.Printf("Hook installed to %s\n", hookPath)
	return nil
}

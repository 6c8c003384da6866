// Package git fetches component repositories with the external git binary.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Binary is the git executable looked up on PATH.
var Binary = "git"

// SyncResult tells whether Sync cloned a fresh checkout or pulled an
// existing one.
type SyncResult string

const (
	Cloned SyncResult = "cloned"
	Pulled SyncResult = "pulled"
)

// Clone performs a shallow clone of url into dest.
func Clone(ctx context.Context, url, dest string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("git clone: empty url")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("git clone: %w", err)
	}
	return run(ctx, "", cloneArgs(url, dest)...)
}

// Pull fast-forwards the checkout at dir.
func Pull(ctx context.Context, dir string) error {
	return run(ctx, dir, pullArgs()...)
}

// Sync clones url into dest, or pulls when dest already holds a checkout.
func Sync(ctx context.Context, url, dest string) (SyncResult, error) {
	if IsCheckout(dest) {
		return Pulled, Pull(ctx, dest)
	}
	return Cloned, Clone(ctx, url, dest)
}

// IsCheckout reports whether dir contains a .git entry.
func IsCheckout(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func cloneArgs(url, dest string) []string {
	return []string{"clone", "--depth", "1", "--", url, dest}
}

func pullArgs() []string {
	return []string{"pull", "--ff-only"}
}

func run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("git %s failed: %w", args[0], err)
		}
		return fmt.Errorf("git %s failed: %w: %s", args[0], err, msg)
	}
	return nil
}

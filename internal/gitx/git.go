// Package gitx shells out to the git binary for everything the prompt
// builder and hook need: staged changes, branch and author context, recent
// history, and the final commit itself.
package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrNoStagedChanges means the index holds nothing to describe.
var ErrNoStagedChanges = errors.New("no staged changes")

const (
	StatusAdded    = "added"
	StatusModified = "modified"
	StatusDeleted  = "deleted"
	StatusRenamed  = "renamed"
	StatusCopied   = "copied"
)

// StagedChange is one entry of the staged diff. OldPath is set only for
// renames and copies.
type StagedChange struct {
	Path    string
	OldPath string
	Status  string
	Diff    string
}

func Git(ctx context.Context, repoRoot string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoRoot}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %v failed: %v\n%s", args, err, stderr.String())
	}
	return stdout.String(), nil
}

func CurrentBranch(ctx context.Context, repoRoot string) (string, error) {
	out, err := Git(ctx, repoRoot, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func GitConfig(ctx context.Context, repoRoot, key string) (string, error) {
	out, err := Git(ctx, repoRoot, "config", "--get", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func RecentCommits(ctx context.Context, repoRoot string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	out, err := Git(ctx, repoRoot, "log", fmt.Sprintf("-n%d", n), "--pretty=format:%s")
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

func RecentCommitsByAuthor(ctx context.Context, repoRoot string, n int, author string) ([]string, error) {
	if n <= 0 || strings.TrimSpace(author) == "" {
		return nil, nil
	}
	out, err := Git(ctx, repoRoot, "log", fmt.Sprintf("-n%d", n), fmt.Sprintf("--author=%s", author), "--pretty=format:%s")
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// StagedChanges lists the staged entries with rename detection and fills in
// each per-file diff, a few files at a time. Entries keep the order git
// reports them in.
func StagedChanges(ctx context.Context, repoRoot string, maxFiles int) ([]StagedChange, error) {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	out, err := Git(ctx, repoRoot, "diff", "--staged", "--name-status", "-M")
	if err != nil {
		return nil, err
	}
	changes := parseNameStatus(out)
	if len(changes) == 0 {
		return nil, ErrNoStagedChanges
	}
	if len(changes) > maxFiles {
		changes = changes[:maxFiles]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range changes {
		c := &changes[i]
		g.Go(func() error {
			diff, err := Git(gctx, repoRoot, diffPathArgs(*c)...)
			if err != nil {
				return err
			}
			c.Diff = diff
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return changes, nil
}

func parseNameStatus(out string) []StagedChange {
	var changes []StagedChange
	for _, ln := range splitNonEmptyLines(out) {
		parts := strings.Split(ln, "\t")
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		sc := StagedChange{Status: statusWord(parts[0])}
		switch parts[0][0] {
		case 'R', 'C':
			if len(parts) < 3 {
				continue
			}
			sc.OldPath = parts[1]
			sc.Path = parts[2]
		default:
			sc.Path = parts[1]
		}
		changes = append(changes, sc)
	}
	return changes
}

func statusWord(code string) string {
	switch code[0] {
	case 'A':
		return StatusAdded
	case 'D':
		return StatusDeleted
	case 'R':
		return StatusRenamed
	case 'C':
		return StatusCopied
	default:
		return StatusModified
	}
}

func diffPathArgs(sc StagedChange) []string {
	args := []string{"diff", "--staged", "-M", "--"}
	if sc.OldPath != "" {
		args = append(args, sc.OldPath)
	}
	return append(args, sc.Path)
}

func OriginalFileAtHEAD(ctx context.Context, repoRoot, relPath string) (string, error) {
	out, err := Git(ctx, repoRoot, "show", "HEAD:"+relPath)
	if err != nil {
		return "", err
	}
	return out, nil
}

func ReadWorkingTreeFile(repoRoot, relPath string) (string, error) {
	b, err := os.ReadFile(filepath.Join(repoRoot, relPath))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func Commit(ctx context.Context, repoRoot, message string) error {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return fmt.Errorf("commit message cannot be empty")
	}
	_, err := Git(ctx, repoRoot, "commit", "-m", msg)
	return err
}

func splitNonEmptyLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

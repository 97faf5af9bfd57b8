// Package commit applies a resolved buffer as the lock-screen wallpaper.
//
// The daemon itself has no compositor knowledge; committers are thin
// adapters around whatever the host system uses to set a wallpaper.
package commit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/rotation"
)

// ErrCommitFailed is returned when the external wallpaper-set API rejects
// the buffer. Logged, cycle ends; there is no retry within the same cycle.
var ErrCommitFailed = errors.New("commit failed")

// Committer pushes a buffer to the lock-screen target. Implementations are
// external, non-reentrant collaborators and are never called while internal
// locks are held.
type Committer interface {
	Commit(ctx context.Context, buf *rotation.Buffer) error
}

// FileCommitter writes the image to a fixed path, for compositors and lock
// screens that watch a file (hyprlock, swaylock wrappers). The write is
// staged and renamed so watchers never observe a partial image.
type FileCommitter struct {
	Path string
}

func (c FileCommitter) Commit(ctx context.Context, buf *rotation.Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	tmp, err := os.CreateTemp(dir, "commit-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	return nil
}

// ExecCommitter stages the buffer to a file and runs a user-configured
// command, substituting "{}" arguments with the staged path. Typical
// commands: "swww img {}", "plasma-apply-wallpaperimage {}".
type ExecCommitter struct {
	// Command is the argv template. At least one element must be "{}".
	Command []string
	// StageDir is where the image file is staged; defaults to os.TempDir().
	StageDir string
}

func (c ExecCommitter) Commit(ctx context.Context, buf *rotation.Buffer) error {
	if len(c.Command) == 0 {
		return fmt.Errorf("%w: no commit command configured", ErrCommitFailed)
	}

	dir := c.StageDir
	if dir == "" {
		dir = os.TempDir()
	}
	staged := filepath.Join(dir, "lockscreen-current."+ext(buf.Format))
	if err := (FileCommitter{Path: staged}).Commit(ctx, buf); err != nil {
		return err
	}

	argv := make([]string, len(c.Command))
	substituted := false
	for i, a := range c.Command {
		if a == "{}" {
			argv[i] = staged
			substituted = true
		} else {
			argv[i] = a
		}
	}
	if !substituted {
		argv = append(argv, staged)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrCommitFailed, argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func ext(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "":
		return "img"
	default:
		return format
	}
}

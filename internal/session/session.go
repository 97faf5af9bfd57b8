// Package session answers "is the user looking at the screen right now".
// It backs the late veto before a commit: if the device turned interactive
// again while we were settling or decoding, the swap is discarded instead
// of flashing a wallpaper change in front of the user.
package session

import (
	"context"
	"os/exec"
)

// Query reports whether the session is interactive (unlocked, display on).
type Query interface {
	Interactive(ctx context.Context) (bool, error)
}

// Static always answers the same; the default for setups without a probe
// command is Static(false), which never vetoes a commit.
type Static bool

func (s Static) Interactive(ctx context.Context) (bool, error) {
	return bool(s), nil
}

// ExecQuery runs a probe command; exit status 0 means interactive. A
// typical probe greps `loginctl show-session` for LockedHint=no.
type ExecQuery struct {
	Command []string
}

func (q ExecQuery) Interactive(ctx context.Context) (bool, error) {
	if len(q.Command) == 0 {
		return false, nil
	}
	cmd := exec.CommandContext(ctx, q.Command[0], q.Command[1:]...)
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

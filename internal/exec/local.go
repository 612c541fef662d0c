// Package exec exposes task runners that can execute arbitrary commands. This is mostly a thin wrapper around
// `os/exec` plus a mocked implementation.
package exec

import (
	"context"
	"os/exec"
	"time"

	"github.com/rwx-research/conductor/internal/errors"
)

// waitDelay bounds how long `Wait` blocks on open output pipes once the context of a command was cancelled.
// Browser processes spawned by the BDD runner tend to outlive it and keep the pipes open.
const waitDelay = 10 * time.Second

// Local is a local executioner. It wraps `os/exec`
type Local struct{}

// NewCommand returns a new command that can then be executed. The command and its process group are killed once
// `ctx` is done.
func (l Local) NewCommand(ctx context.Context, cfg CommandConfig) (Command, error) {
	if cfg.Name == "" {
		return nil, errors.NewInternalError("no command name was provided")
	}

	//nolint:gosec // Spawning a user-configurable sub-process is expected here.
	cmd := exec.CommandContext(ctx, cfg.Name, cfg.Args...)

	cmd.Dir = cfg.Dir
	cmd.Stderr = cfg.Stderr
	cmd.Stdout = cfg.Stdout
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	if len(cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.Env...)
	}

	return cmd, nil
}

// GetExitStatusFromError extracts the exit code from an error
func (l Local) GetExitStatusFromError(err error) (int, error) {
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return exitError.ExitCode(), nil
	}

	return 0, errors.NewInternalError("Expected error to be of type exec.ExitError, received %T", err)
}

//go:build !windows

package exec

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the command as the leader of its own process group and makes cancellation kill the
// whole group, so browsers and servers spawned by the runner die along with it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}

		return nil
	}
}

//go:build windows

package exec

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup only detaches the command into a new process group. Windows has no group kill, cancellation
// falls back to killing the process itself.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

//go:build unix

package launcher

import (
	"os/exec"
	"syscall"
)

// detach starts the child in a new session so terminal hangups do not reach it
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

//go:build !windows

package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid so Chrome's
// helper processes die with the browser.
// Errors are ignored: the launcher's own Kill runs afterwards.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

//go:build linux

package serve

import "syscall"

// childSysProcAttr terminates a child process when the parent dies
func childSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}

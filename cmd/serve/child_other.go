//go:build !linux

package serve

import "syscall"

func childSysProcAttr() *syscall.SysProcAttr {
	return nil
}

//go:build linux

package envmgr

import (
	"golang.org/x/sys/unix"
)

// osThreadID is only meaningful for goroutines locked to their OS thread.
func osThreadID() int {
	return unix.Gettid()
}

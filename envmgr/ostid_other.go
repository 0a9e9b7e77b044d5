//go:build !linux

package envmgr

func osThreadID() int {
	return -1
}

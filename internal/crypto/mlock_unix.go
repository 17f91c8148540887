//go:build !windows

package crypto

import (
	"golang.org/x/sys/unix"
)

// mlock locks the memory holding data. It reports false when the system
// refuses, for example over RLIMIT_MEMLOCK.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return unix.Mlock(data) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Munlock(data)
}

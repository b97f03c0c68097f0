//go:build linux

package liburing

import (
	"golang.org/x/sys/unix"
)

const (
	IORING_ENTER_GETEVENTS uint32 = 1 << iota
	IORING_ENTER_SQ_WAKEUP
	IORING_ENTER_SQ_WAIT
	IORING_ENTER_EXT_ARG
	IORING_ENTER_REGISTERED_RING
)

const (
	nSig      = 65
	szDivider = 8
)

func (ring *Ring) Enter(submitted uint32, waitNr uint32, flags uint32) (uint, error) {
	consumed, _, errno := unix.Syscall6(
		unix.SYS_IO_URING_ENTER,
		uintptr(ring.enterRingFd),
		uintptr(submitted),
		uintptr(waitNr),
		uintptr(flags),
		0,
		nSig/szDivider,
	)
	if errno != 0 {
		return 0, errno
	}
	return uint(consumed), nil
}

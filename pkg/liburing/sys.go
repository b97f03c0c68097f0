//go:build linux

package liburing

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func mmap(addr uintptr, length uintptr, prot int, flags int, fd int, offset int64) (ptr unsafe.Pointer, err error) {
	r1, _, e1 := unix.Syscall6(unix.SYS_MMAP, addr, length, uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
	if e1 != 0 {
		err = e1
		return
	}
	ptr = unsafe.Pointer(r1)
	return
}

func munmap(addr uintptr, length uintptr) (err error) {
	_, _, e1 := unix.Syscall(unix.SYS_MUNMAP, addr, length, 0)
	if e1 != 0 {
		return e1
	}
	return nil
}

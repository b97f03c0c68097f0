//go:build linux

package liburing

import (
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	IORING_REGISTER_BUFFERS uint32 = iota
	IORING_UNREGISTER_BUFFERS
	IORING_REGISTER_FILES
	IORING_UNREGISTER_FILES
	IORING_REGISTER_EVENTFD
	IORING_UNREGISTER_EVENTFD
	IORING_REGISTER_FILES_UPDATE
	IORING_REGISTER_EVENTFD_ASYNC
	IORING_REGISTER_PROBE
	IORING_REGISTER_PERSONALITY
	IORING_UNREGISTER_PERSONALITY
	IORING_REGISTER_RESTRICTIONS
	IORING_REGISTER_ENABLE_RINGS
	IORING_REGISTER_FILES2
	IORING_REGISTER_FILES_UPDATE2
	IORING_REGISTER_BUFFERS2
	IORING_REGISTER_BUFFERS_UPDATE
	IORING_REGISTER_IOWQ_AFF
	IORING_UNREGISTER_IOWQ_AFF
	IORING_REGISTER_IOWQ_MAX_WORKERS
	IORING_REGISTER_RING_FDS
	IORING_UNREGISTER_RING_FDS

	IORING_REGISTER_USE_REGISTERED_RING = 1 << 31
)

type RsrcUpdate struct {
	Offset uint32
	Resv   uint32
	Data   uint64
}

const registerRingFdOffset = uint32(4294967295)

func (ring *Ring) Register(fd int, opcode uint32, arg unsafe.Pointer, nrArgs uint32) (uint, unix.Errno) {
	r1, _, errno := unix.Syscall6(
		unix.SYS_IO_URING_REGISTER,
		uintptr(fd),
		uintptr(opcode),
		uintptr(arg),
		uintptr(nrArgs),
		0,
		0,
	)
	return uint(r1), errno
}

// RegisterFiles
// 注册固定文件，注册后 SQE 以 IOSQE_FIXED_FILE 使用下标代替 fd。
func (ring *Ring) RegisterFiles(files []int32) (uint, error) {
	if len(files) == 0 {
		return 0, unix.EINVAL
	}
	ret, err := ring.doRegister(IORING_REGISTER_FILES, unsafe.Pointer(&files[0]), uint32(len(files)))
	runtime.KeepAlive(files)
	return ret, err
}

func (ring *Ring) UnregisterFiles() (uint, error) {
	return ring.doRegister(IORING_UNREGISTER_FILES, nil, 0)
}

func (ring *Ring) RegisterProbe(probe *Probe, nrOps int) (uint, error) {
	ret, err := ring.doRegister(IORING_REGISTER_PROBE, unsafe.Pointer(probe), uint32(nrOps))
	runtime.KeepAlive(probe)
	return ret, err
}

// RegisterRingFd
// 注册 ring fd，之后 io_uring_enter 使用注册下标，省去每次 fdget。
func (ring *Ring) RegisterRingFd() (uint, error) {
	if ring.kind&regRing != 0 {
		return 0, unix.EEXIST
	}
	update := &RsrcUpdate{
		Data:   uint64(ring.ringFd),
		Offset: registerRingFdOffset,
	}
	ret, err := ring.doRegister(IORING_REGISTER_RING_FDS, unsafe.Pointer(update), 1)
	if err != nil {
		return ret, err
	}
	if ret != 1 {
		return ret, os.NewSyscallError("io_uring_register", unix.EINVAL)
	}
	ring.enterRingFd = int(update.Offset)
	ring.kind |= regRing
	if ring.features&IORING_FEAT_REG_REG_RING != 0 {
		ring.kind |= doubleRegRing
	}
	return ret, nil
}

func (ring *Ring) UnregisterRingFd() (uint, error) {
	if ring.kind&regRing == 0 {
		return 0, unix.EINVAL
	}
	update := &RsrcUpdate{
		Offset: uint32(ring.enterRingFd),
	}
	ret, err := ring.doRegister(IORING_UNREGISTER_RING_FDS, unsafe.Pointer(update), 1)
	if err != nil {
		return ret, err
	}
	if ret == 1 {
		ring.enterRingFd = ring.ringFd
		ring.kind &^= regRing | doubleRegRing
	}
	return ret, nil
}

func (ring *Ring) doRegister(opCode uint32, arg unsafe.Pointer, nrArgs uint32) (uint, error) {
	fd := ring.ringFd
	if ring.kind&doubleRegRing != 0 {
		opCode |= IORING_REGISTER_USE_REGISTERED_RING
		fd = ring.enterRingFd
	}
	ret, errno := ring.Register(fd, opCode, arg, nrArgs)
	if errno != 0 {
		return 0, os.NewSyscallError("io_uring_register", errno)
	}
	return ret, nil
}

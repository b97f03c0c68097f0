//go:build linux

package liburing

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	regRing       uint8 = 1
	doubleRegRing uint8 = 2
)

const (
	offSQRing uint64 = 0
	offCQRing uint64 = 0x8000000
	offSQEs   uint64 = 0x10000000
)

const kernMaxEntries = 32768

func (ring *Ring) setup(entries uint32, params *Params) error {
	if entries == 0 {
		return unix.EINVAL
	}
	if entries > kernMaxEntries && params.flags&IORING_SETUP_CLAMP == 0 {
		return unix.EINVAL
	}

	fdPtr, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(entries), uintptr(unsafe.Pointer(params)), 0)
	if errno != 0 {
		return errno
	}
	fd := int(fdPtr)

	if err := mmapRing(fd, params, ring.sqRing, ring.cqRing); err != nil {
		_ = unix.Close(fd)
		return err
	}

	// identity mapping of sq array
	sqEntries := *ring.sqRing.ringEntries
	for index := uint32(0); index < sqEntries; index++ {
		*(*uint32)(unsafe.Add(unsafe.Pointer(ring.sqRing.array), uintptr(index)*unsafe.Sizeof(uint32(0)))) = index
	}

	ring.features = params.features
	ring.flags = params.flags
	ring.ringFd = fd
	ring.enterRingFd = fd
	unix.CloseOnExec(fd)
	return nil
}

func mmapRing(fd int, p *Params, sq *SubmissionQueue, cq *CompletionQueue) error {
	sq.ringSize = uint(uintptr(p.sqOff.array) + uintptr(p.sqEntries)*unsafe.Sizeof(uint32(0)))
	cq.ringSize = uint(uintptr(p.cqOff.cqes) + uintptr(p.cqEntries)*unsafe.Sizeof(CompletionQueueEvent{}))

	if p.features&IORING_FEAT_SINGLE_MMAP != 0 {
		if cq.ringSize > sq.ringSize {
			sq.ringSize = cq.ringSize
		}
		cq.ringSize = sq.ringSize
	}

	ptr, err := mmap(0, uintptr(sq.ringSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE, fd, int64(offSQRing))
	if err != nil {
		sq.ringSize = 0
		return err
	}
	sq.ringPtr = ptr

	if p.features&IORING_FEAT_SINGLE_MMAP != 0 {
		cq.ringPtr = sq.ringPtr
	} else {
		ptr, err = mmap(0, uintptr(cq.ringSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE, fd, int64(offCQRing))
		if err != nil {
			cq.ringPtr = nil
			unmapRings(sq, cq)
			return err
		}
		cq.ringPtr = ptr
	}

	ptr, err = mmap(0, unsafe.Sizeof(SubmissionQueueEntry{})*uintptr(p.sqEntries), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE, fd, int64(offSQEs))
	if err != nil {
		unmapRings(sq, cq)
		return err
	}
	sq.sqes = (*SubmissionQueueEntry)(ptr)
	setupRingPointers(p, sq, cq)
	return nil
}

func setupRingPointers(p *Params, sq *SubmissionQueue, cq *CompletionQueue) {
	sq.head = (*uint32)(unsafe.Add(sq.ringPtr, p.sqOff.head))
	sq.tail = (*uint32)(unsafe.Add(sq.ringPtr, p.sqOff.tail))
	sq.ringMask = (*uint32)(unsafe.Add(sq.ringPtr, p.sqOff.ringMask))
	sq.ringEntries = (*uint32)(unsafe.Add(sq.ringPtr, p.sqOff.ringEntries))
	sq.flags = (*uint32)(unsafe.Add(sq.ringPtr, p.sqOff.flags))
	sq.dropped = (*uint32)(unsafe.Add(sq.ringPtr, p.sqOff.dropped))
	sq.array = (*uint32)(unsafe.Add(sq.ringPtr, p.sqOff.array))

	cq.head = (*uint32)(unsafe.Add(cq.ringPtr, p.cqOff.head))
	cq.tail = (*uint32)(unsafe.Add(cq.ringPtr, p.cqOff.tail))
	cq.ringMask = (*uint32)(unsafe.Add(cq.ringPtr, p.cqOff.ringMask))
	cq.ringEntries = (*uint32)(unsafe.Add(cq.ringPtr, p.cqOff.ringEntries))
	cq.overflow = (*uint32)(unsafe.Add(cq.ringPtr, p.cqOff.overflow))
	cq.cqes = (*CompletionQueueEvent)(unsafe.Add(cq.ringPtr, p.cqOff.cqes))
	if p.cqOff.flags != 0 {
		cq.flags = (*uint32)(unsafe.Add(cq.ringPtr, p.cqOff.flags))
	}
}

func unmapRings(sq *SubmissionQueue, cq *CompletionQueue) {
	if sq.ringSize > 0 && sq.ringPtr != nil {
		_ = munmap(uintptr(sq.ringPtr), uintptr(sq.ringSize))
	}
	if cq.ringPtr != nil && cq.ringSize > 0 && cq.ringPtr != sq.ringPtr {
		_ = munmap(uintptr(cq.ringPtr), uintptr(cq.ringSize))
	}
	sq.ringPtr = nil
	cq.ringPtr = nil
}

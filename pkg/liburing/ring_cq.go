//go:build linux

package liburing

import (
	"sync/atomic"
	"unsafe"
)

func (ring *Ring) CQEntries() uint32 {
	return *ring.cqRing.ringEntries
}

func (ring *Ring) CQReady() uint32 {
	return atomic.LoadUint32(ring.cqRing.tail) - *ring.cqRing.head
}

func (ring *Ring) CQAdvance(numberOfCQEs uint32) {
	atomic.StoreUint32(ring.cqRing.head, *ring.cqRing.head+numberOfCQEs)
}

// PeekCQE
// 不进入内核，返回 CQ 头部的 CQE，没有时返回 nil。
func (ring *Ring) PeekCQE() *CompletionQueueEvent {
	head := *ring.cqRing.head
	if atomic.LoadUint32(ring.cqRing.tail) == head {
		return nil
	}
	return ring.cqeAt(head)
}

// PeekBatchCQE
// 填充 cqes，返回填充的数量。CQ 溢出时会进入内核刷新一次。
func (ring *Ring) PeekBatchCQE(cqes []*CompletionQueueEvent) uint32 {
	var overflowChecked bool
	count := uint32(len(cqes))

AGAIN:
	ready := ring.CQReady()
	if ready != 0 {
		if count > ready {
			count = ready
		}
		head := *ring.cqRing.head
		for i := uint32(0); i < count; i++ {
			cqes[i] = ring.cqeAt(head + i)
		}
		return count
	}

	if overflowChecked {
		return 0
	}

	if ring.cqRingNeedsFlush() {
		_, _ = ring.GetEvents()
		overflowChecked = true
		goto AGAIN
	}
	return 0
}

// WaitCQE
// 阻塞直到至少有一个 CQE。
func (ring *Ring) WaitCQE() (*CompletionQueueEvent, error) {
	for {
		if cqe := ring.PeekCQE(); cqe != nil {
			return cqe, nil
		}
		flags := IORING_ENTER_GETEVENTS
		if ring.kind&regRing != 0 {
			flags |= IORING_ENTER_REGISTERED_RING
		}
		if _, err := ring.Enter(0, 1, flags); err != nil {
			return nil, err
		}
	}
}

func (ring *Ring) GetEvents() (uint, error) {
	flags := IORING_ENTER_GETEVENTS
	if ring.kind&regRing != 0 {
		flags |= IORING_ENTER_REGISTERED_RING
	}
	return ring.Enter(0, 0, flags)
}

func (ring *Ring) cqeAt(head uint32) *CompletionQueueEvent {
	return (*CompletionQueueEvent)(
		unsafe.Add(unsafe.Pointer(ring.cqRing.cqes), uintptr(head&*ring.cqRing.ringMask)*unsafe.Sizeof(CompletionQueueEvent{})),
	)
}

func (ring *Ring) cqRingNeedsFlush() bool {
	return atomic.LoadUint32(ring.sqRing.flags)&(IORING_SQ_CQ_OVERFLOW|IORING_SQ_TASKRUN) != 0
}

func (ring *Ring) cqRingNeedsEnter() bool {
	return ring.flags&IORING_SETUP_IOPOLL != 0 || ring.cqRingNeedsFlush()
}

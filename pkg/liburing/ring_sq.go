//go:build linux

package liburing

import (
	"sync/atomic"
	"unsafe"
)

// GetSQE
// 获取一个空闲的 SQE，SQ 已满时返回 nil。
func (ring *Ring) GetSQE() *SubmissionQueueEntry {
	sq := ring.sqRing
	head := atomic.LoadUint32(sq.head)
	next := sq.sqeTail + 1
	if next-head <= *sq.ringEntries {
		sqe := (*SubmissionQueueEntry)(
			unsafe.Add(unsafe.Pointer(sq.sqes), uintptr(sq.sqeTail&*sq.ringMask)*unsafe.Sizeof(SubmissionQueueEntry{})),
		)
		sq.sqeTail = next
		return sqe
	}
	return nil
}

func (ring *Ring) sqRingNeedsEnter(submit uint32, flags *uint32) bool {
	if submit == 0 {
		return false
	}
	if ring.flags&IORING_SETUP_SQPOLL == 0 {
		return true
	}
	if atomic.LoadUint32(ring.sqRing.flags)&IORING_SQ_NEED_WAKEUP != 0 {
		*flags |= IORING_ENTER_SQ_WAKEUP
		return true
	}
	return false
}

func (ring *Ring) flushSQ() uint32 {
	sq := ring.sqRing
	tail := sq.sqeTail
	if sq.sqeHead != tail {
		sq.sqeHead = tail
		atomic.StoreUint32(sq.tail, tail)
	}
	return tail - atomic.LoadUint32(sq.head)
}

//go:build linux

package liburing

// Submit
// 提交 SQ 中已准备的 SQE，返回内核消费的数量。
func (ring *Ring) Submit() (uint, error) {
	return ring.submit(ring.flushSQ(), 0)
}

// SubmitAndWait
// 提交并等待至少 waitNr 个完成。
func (ring *Ring) SubmitAndWait(waitNr uint32) (uint, error) {
	return ring.submit(ring.flushSQ(), waitNr)
}

func (ring *Ring) submit(submitted uint32, waitNr uint32) (uint, error) {
	cqNeedsEnter := waitNr != 0 || ring.cqRingNeedsEnter()

	var flags uint32
	if ring.sqRingNeedsEnter(submitted, &flags) || cqNeedsEnter {
		if cqNeedsEnter {
			flags |= IORING_ENTER_GETEVENTS
		}
		if ring.kind&regRing != 0 {
			flags |= IORING_ENTER_REGISTERED_RING
		}
		return ring.Enter(submitted, waitNr, flags)
	}
	return uint(submitted), nil
}

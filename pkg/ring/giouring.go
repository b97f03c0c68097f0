//go:build linux && giouring

package ring

import (
	"github.com/pawelgaczynski/giouring"
)

// giouringEngine
// 单发 accept，不支持注册文件。
func newGiouringEngine(options Options) (engine, error) {
	r, err := giouring.CreateRing(options.Entries)
	if err != nil {
		return nil, err
	}
	return &giouringEngine{
		ring: r,
		cqes: make([]*giouring.CompletionQueueEvent, options.Entries*2),
	}, nil
}

type giouringEngine struct {
	ring *giouring.Ring
	cqes []*giouring.CompletionQueueEvent
}

func (e *giouringEngine) push(r *request) bool {
	sqe := e.ring.GetSQE()
	if sqe == nil {
		return false
	}
	switch r.op.Kind {
	case Accept:
		sqe.PrepareAccept(r.fd, 0, 0, 0)
	case Receive:
		sqe.PrepareRecv(r.fd, r.addr, r.length, 0)
	case Send:
		sqe.PrepareSend(r.fd, r.addr, r.length, 0)
	case Close:
		sqe.PrepareClose(r.fd)
	case Wakeup:
		sqe.PrepareRead(r.fd, r.addr, r.length, 0)
	default:
		sqe.PrepareNop()
	}
	sqe.SetData64(r.op.Encode())
	return true
}

func (e *giouringEngine) submit() error {
	_, err := e.ring.Submit()
	return err
}

func (e *giouringEngine) submitAndWait(min uint32) (int, error) {
	n, err := e.ring.SubmitAndWait(min)
	return int(n), err
}

func (e *giouringEngine) peekBatch(completions []Completion) int {
	n := e.ring.PeekBatchCQE(e.cqes)
	for i := uint32(0); i < n; i++ {
		cqe := e.cqes[i]
		completions[i] = Completion{
			Result: cqe.Res,
			Tag:    cqe.UserData,
			Flags:  cqe.Flags,
		}
		e.cqes[i] = nil
	}
	return int(n)
}

func (e *giouringEngine) advance(n uint32) {
	e.ring.CQAdvance(n)
}

func (e *giouringEngine) cqEntries() uint32 {
	return uint32(len(e.cqes))
}

func (e *giouringEngine) registerListener(_ int) error {
	return ErrUnsupported
}

func (e *giouringEngine) features() Features {
	return Features{}
}

func (e *giouringEngine) close() error {
	e.ring.QueueExit()
	return nil
}

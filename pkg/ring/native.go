//go:build linux

package ring

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd/pkg/kernel"
	"github.com/brickingsoft/ringd/pkg/liburing"
	"golang.org/x/sys/unix"
)

func newNativeEngine(options Options) (engine, error) {
	ringOptions := []liburing.Option{
		liburing.WithEntries(options.Entries),
		liburing.WithFlags(liburing.IORING_SETUP_CLAMP),
	}
	if options.SQPoll {
		ringOptions = append(ringOptions,
			liburing.WithFlags(liburing.IORING_SETUP_SQPOLL),
			liburing.WithSQThreadIdle(options.SQThreadIdle),
		)
		if options.SQThreadCPU >= 0 {
			ringOptions = append(ringOptions, liburing.WithSQThreadCPU(uint32(options.SQThreadCPU)))
		}
	} else {
		// dropped by liburing below 5.19
		ringOptions = append(ringOptions, liburing.WithFlags(liburing.IORING_SETUP_COOP_TASKRUN))
	}
	r, err := liburing.New(ringOptions...)
	if err != nil {
		return nil, err
	}
	// probe registration landed in 5.6, older kernels skip the check
	if probe, probeErr := r.Probe(); probeErr == nil {
		if opErr := checkProbe(probe); opErr != nil {
			_ = r.Close()
			return nil, opErr
		}
	}
	e := &nativeEngine{
		ring: r,
		cqes: make([]*liburing.CompletionQueueEvent, r.CQEntries()),
	}
	// multishot accept landed in 5.19
	if ok, _ := kernel.Check(5, 19, 0); ok {
		e.feats.MultishotAccept = true
	}
	e.feats.RegisteredListener = true
	if options.RegisterRingFd {
		if _, regErr := r.RegisterRingFd(); regErr == nil {
			e.feats.RegisteredRing = true
		}
	}
	return e, nil
}

var requiredOps = []struct {
	op   uint8
	name string
}{
	{liburing.IORING_OP_ACCEPT, "accept"},
	{liburing.IORING_OP_RECV, "recv"},
	{liburing.IORING_OP_SEND, "send"},
	{liburing.IORING_OP_CLOSE, "close"},
	{liburing.IORING_OP_READ, "read"},
}

// checkProbe
// 循环用到的每个操作码都必须被内核支持。
func checkProbe(probe *liburing.Probe) error {
	for _, required := range requiredOps {
		if !probe.IsSupported(required.op) {
			return errors.From(
				ErrUnsupported,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaOpKey, required.name),
			)
		}
	}
	return nil
}

type nativeEngine struct {
	ring      *liburing.Ring
	cqes      []*liburing.CompletionQueueEvent
	feats     Features
	fixedFile bool
}

func (e *nativeEngine) push(r *request) bool {
	sqe := e.ring.GetSQE()
	if sqe == nil {
		return false
	}
	switch r.op.Kind {
	case Accept:
		if r.multishot {
			sqe.PrepareAcceptMultishot(r.fd, nil, nil, unix.SOCK_CLOEXEC)
		} else {
			sqe.PrepareAccept(r.fd, nil, nil, unix.SOCK_CLOEXEC)
		}
		if r.fixed {
			sqe.SetFlags(liburing.IOSQE_FIXED_FILE)
		}
	case Receive:
		sqe.PrepareRecv(r.fd, r.addr, r.length, 0)
	case Send:
		sqe.PrepareSend(r.fd, r.addr, r.length, unix.MSG_NOSIGNAL)
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

func (e *nativeEngine) submit() error {
	_, err := e.ring.Submit()
	return err
}

func (e *nativeEngine) submitAndWait(min uint32) (int, error) {
	n, err := e.ring.SubmitAndWait(min)
	return int(n), err
}

func (e *nativeEngine) peekBatch(completions []Completion) int {
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

func (e *nativeEngine) advance(n uint32) {
	e.ring.CQAdvance(n)
}

func (e *nativeEngine) cqEntries() uint32 {
	return e.ring.CQEntries()
}

func (e *nativeEngine) registerListener(fd int) error {
	if _, err := e.ring.RegisterFiles([]int32{int32(fd)}); err != nil {
		return err
	}
	e.fixedFile = true
	return nil
}

func (e *nativeEngine) features() Features {
	return e.feats
}

func (e *nativeEngine) close() error {
	if e.fixedFile {
		_, _ = e.ring.UnregisterFiles()
		e.fixedFile = false
	}
	return e.ring.Close()
}

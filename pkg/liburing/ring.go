//go:build linux

package liburing

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const DefaultEntries = 1024

type Options struct {
	Entries      uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
}

type Option func(*Options) error

// WithEntries
// 设置 SQ 大小，会被向上取整为 2 的幂。
func WithEntries(entries uint32) Option {
	return func(opts *Options) error {
		if entries > 0 {
			opts.Entries = RoundupPow2(entries)
		}
		return nil
	}
}

// WithFlags
// 设置 setup 标志，不支持的标志会在 Params.Validate 时被过滤。
func WithFlags(flags uint32) Option {
	return func(opts *Options) error {
		opts.Flags |= flags
		return nil
	}
}

// WithSQThreadIdle
// 设置 SQPOLL 线程空闲时间。
func WithSQThreadIdle(idle time.Duration) Option {
	return func(opts *Options) error {
		if idle > 0 {
			opts.SQThreadIdle = uint32(idle.Milliseconds())
		}
		return nil
	}
}

// WithSQThreadCPU
// 设置 SQPOLL 线程绑定的 CPU，并追加 IORING_SETUP_SQ_AFF。
func WithSQThreadCPU(cpu uint32) Option {
	return func(opts *Options) error {
		opts.SQThreadCPU = cpu
		opts.Flags |= IORING_SETUP_SQ_AFF
		return nil
	}
}

func New(options ...Option) (ring *Ring, err error) {
	opts := Options{
		Entries: DefaultEntries,
	}
	for _, o := range options {
		if err = o(&opts); err != nil {
			return
		}
	}

	params := &Params{}
	params.flags = opts.Flags
	params.sqThreadCPU = opts.SQThreadCPU
	params.sqThreadIdle = opts.SQThreadIdle

	if err = params.Validate(); err != nil {
		return
	}

	ring = &Ring{
		sqRing:      &SubmissionQueue{},
		cqRing:      &CompletionQueue{},
		ringFd:      -1,
		enterRingFd: -1,
	}
	if err = ring.setup(opts.Entries, params); err != nil {
		ring = nil
		return
	}
	return
}

type Ring struct {
	sqRing      *SubmissionQueue
	cqRing      *CompletionQueue
	flags       uint32
	ringFd      int
	features    uint32
	enterRingFd int
	kind        uint8
}

func (ring *Ring) Flags() uint32 {
	return ring.flags
}

func (ring *Ring) Features() uint32 {
	return ring.features
}

func (ring *Ring) Fd() int {
	return ring.ringFd
}

func (ring *Ring) Close() (err error) {
	if ring.ringFd == -1 {
		return unix.EBADF
	}
	sq := ring.sqRing
	cq := ring.cqRing

	if ring.kind&regRing != 0 {
		_, _ = ring.UnregisterRingFd()
	}
	if sq.sqes != nil {
		_ = munmap(uintptr(unsafe.Pointer(sq.sqes)), uintptr(*sq.ringEntries)*unsafe.Sizeof(SubmissionQueueEntry{}))
		sq.sqes = nil
	}
	unmapRings(sq, cq)

	err = unix.Close(ring.ringFd)
	ring.ringFd = -1
	ring.enterRingFd = -1
	return
}

func (ring *Ring) Probe() (*Probe, error) {
	probe := &Probe{}
	if _, err := ring.RegisterProbe(probe, probeOpsSize); err != nil {
		return nil, err
	}
	return probe, nil
}

//go:build linux

package ring

import (
	"iter"
	"time"
	"unsafe"

	"github.com/brickingsoft/ringd/pkg/liburing"
	"github.com/eapache/queue"
)

const DefaultEntries = 1024

// Completion
// CQE 的拷贝，取出时对应的 CQE 已经被消费。
type Completion struct {
	Result int32
	Tag    uint64
	Flags  uint32
}

// More
// 多发（multishot）操作之后还会有完成。
func (c Completion) More() bool {
	return c.Flags&liburing.IORING_CQE_F_MORE != 0
}

func (c Completion) Operation() Operation {
	return Decode(c.Tag)
}

type Features struct {
	MultishotAccept    bool
	RegisteredListener bool
	RegisteredRing     bool
}

// Ring
// Prepare 系列只入队，不进入内核；SubmitAndWait 一次性提交。
type Ring interface {
	PrepareAccept(fd int, multishot bool)
	PrepareReceive(fd int, b []byte)
	PrepareSend(fd int, b []byte)
	PrepareClose(fd int)
	PrepareWakeup(fd int, b []byte)
	SubmitAndWait(min uint32) (int, error)
	Completions() iter.Seq[Completion]
	RegisterListener(fd int) error
	Features() Features
	Backlog() int
	Close() error
}

type Options struct {
	Entries        uint32
	Backend        string
	SQPoll         bool
	SQThreadIdle   time.Duration
	SQThreadCPU    int
	RegisterRingFd bool
}

type Option func(options *Options) (err error)

// WithEntries
// 设置 SQ 大小，CQ 为其两倍。
func WithEntries(entries uint32) Option {
	return func(options *Options) (err error) {
		if entries > 0 {
			options.Entries = entries
		}
		return
	}
}

// WithBackend
// 设置 ring 实现，liburing（默认）或 giouring。
func WithBackend(backend string) Option {
	return func(options *Options) (err error) {
		switch backend {
		case "", BackendLiburing:
			options.Backend = BackendLiburing
		case BackendGiouring:
			options.Backend = BackendGiouring
		default:
			err = newInitError(backend, ErrUnsupported)
		}
		return
	}
}

// WithSQPoll
// 开启内核 SQ 轮询线程。idle 为线程空闲多久后休眠，cpu 小于 0 时不绑定。
func WithSQPoll(idle time.Duration, cpu int) Option {
	return func(options *Options) (err error) {
		options.SQPoll = true
		options.SQThreadIdle = idle
		options.SQThreadCPU = cpu
		return
	}
}

// WithRegisterRingFd
// 注册 ring fd，减少 io_uring_enter 的开销。
func WithRegisterRingFd(register bool) Option {
	return func(options *Options) (err error) {
		options.RegisterRingFd = register
		return
	}
}

func New(options ...Option) (Ring, error) {
	opts := Options{
		Entries:     DefaultEntries,
		Backend:     BackendLiburing,
		SQThreadCPU: -1,
	}
	for _, o := range options {
		if err := o(&opts); err != nil {
			return nil, err
		}
	}
	var (
		e   engine
		err error
	)
	switch opts.Backend {
	case BackendGiouring:
		e, err = newGiouringEngine(opts)
	default:
		e, err = newNativeEngine(opts)
	}
	if err != nil {
		return nil, newInitError(opts.Backend, err)
	}
	return newRing(e), nil
}

// request
// 一次待写入 SQE 的操作。SQ 满时暂存在 backlog 中。
type request struct {
	op        Operation
	fd        int
	addr      uintptr
	length    uint32
	multishot bool
	fixed     bool
}

type engine interface {
	push(r *request) bool
	submit() error
	submitAndWait(min uint32) (int, error)
	peekBatch(completions []Completion) int
	advance(n uint32)
	cqEntries() uint32
	registerListener(fd int) error
	features() Features
	close() error
}

func newRing(e engine) *ring {
	return &ring{
		engine:        e,
		backlog:       queue.New(),
		listenerFd:    -1,
		listenerFixed: -1,
		completions:   make([]Completion, e.cqEntries()),
	}
}

type ring struct {
	engine        engine
	backlog       *queue.Queue
	listenerFd    int
	listenerFixed int
	completions   []Completion
	closed        bool
}

func (r *ring) PrepareAccept(fd int, multishot bool) {
	req := request{
		op:        Accepting(),
		fd:        fd,
		multishot: multishot && r.engine.features().MultishotAccept,
	}
	if fd == r.listenerFd && r.listenerFixed >= 0 {
		req.fd = r.listenerFixed
		req.fixed = true
	}
	r.prepare(req)
}

func (r *ring) PrepareReceive(fd int, b []byte) {
	r.prepare(request{
		op:     Receiving(fd),
		fd:     fd,
		addr:   bytesAddr(b),
		length: uint32(len(b)),
	})
}

func (r *ring) PrepareSend(fd int, b []byte) {
	r.prepare(request{
		op:     Sending(fd),
		fd:     fd,
		addr:   bytesAddr(b),
		length: uint32(len(b)),
	})
}

func (r *ring) PrepareClose(fd int) {
	r.prepare(request{
		op: Closing(fd),
		fd: fd,
	})
}

func (r *ring) PrepareWakeup(fd int, b []byte) {
	r.prepare(request{
		op:     Waking(fd),
		fd:     fd,
		addr:   bytesAddr(b),
		length: uint32(len(b)),
	})
}

func (r *ring) prepare(req request) {
	// keep submission order once something is parked
	if r.backlog.Length() > 0 || !r.engine.push(&req) {
		r.backlog.Add(req)
	}
}

func (r *ring) Backlog() int {
	return r.backlog.Length()
}

func (r *ring) SubmitAndWait(min uint32) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if err := r.flushBacklog(); err != nil {
		return 0, newSubmitError(err)
	}
	n, err := r.engine.submitAndWait(min)
	if err != nil {
		return n, newSubmitError(err)
	}
	return n, nil
}

// flushBacklog
// 将 backlog 中的请求写入 SQ，SQ 满时先提交一次腾出空间。
func (r *ring) flushBacklog() error {
	for r.backlog.Length() > 0 {
		req := r.backlog.Peek().(request)
		if r.engine.push(&req) {
			r.backlog.Remove()
			continue
		}
		if err := r.engine.submit(); err != nil {
			return err
		}
		if !r.engine.push(&req) {
			// kernel did not consume anything, leave the rest for the next round
			return nil
		}
		r.backlog.Remove()
	}
	return nil
}

func (r *ring) Completions() iter.Seq[Completion] {
	return func(yield func(Completion) bool) {
		if r.closed {
			return
		}
		n := r.engine.peekBatch(r.completions)
		for i := 0; i < n; i++ {
			c := r.completions[i]
			r.engine.advance(1)
			if !yield(c) {
				return
			}
		}
	}
}

func (r *ring) RegisterListener(fd int) error {
	if r.closed {
		return ErrClosed
	}
	if !r.engine.features().RegisteredListener {
		return ErrUnsupported
	}
	if err := r.engine.registerListener(fd); err != nil {
		return err
	}
	r.listenerFd = fd
	r.listenerFixed = 0
	return nil
}

func (r *ring) Features() Features {
	return r.engine.features()
}

func (r *ring) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	for r.backlog.Length() > 0 {
		r.backlog.Remove()
	}
	return r.engine.close()
}

func bytesAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

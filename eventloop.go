//go:build linux

package ringd

import (
	"context"
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd/pkg/bytebuffers"
	"github.com/brickingsoft/ringd/pkg/process"
	"github.com/brickingsoft/ringd/pkg/ring"
	"github.com/brickingsoft/ringd/pkg/sys"
	"github.com/dustin/go-humanize"
	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

// New
// 创建监听 socket 与单个事件循环，返回的 Loop 拥有该监听 fd。
func New(options ...Option) (loop *Loop, err error) {
	opts, optsErr := NewOptions(options...)
	if optsErr != nil {
		err = optsErr
		return
	}
	fd, listenErr := sys.Listen(opts.Address, opts.Port, sys.ListenOptions{Backlog: opts.Backlog})
	if listenErr != nil {
		err = newSetupError("listen", listenErr)
		return
	}
	loop, err = newLoop(0, fd, opts)
	if err != nil {
		_ = unix.Close(fd)
		return
	}
	return
}

func newLoop(id int, listenerFd int, options Options) (*Loop, error) {
	r, ringErr := ring.New(options.ringOptions()...)
	if ringErr != nil {
		return nil, newSetupError("ring", ringErr)
	}
	loop, err := newLoopWithRing(id, listenerFd, r, options)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return loop, nil
}

func newLoopWithRing(id int, listenerFd int, r ring.Ring, options Options) (*Loop, error) {
	pool, poolErr := bytebuffers.New(options.MaxConnections, options.BufferSize)
	if poolErr != nil {
		return nil, newSetupError("buffers", poolErr)
	}
	wakeFd, wakeErr := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if wakeErr != nil {
		return nil, newSetupError("eventfd", wakeErr)
	}
	response := options.Response
	if len(response) == 0 {
		response = StandardResponse()
	}
	logger := options.Logger
	if logger != nil {
		logger = logger.Clone().Int("loop", id).Logger()
	}
	loop := &Loop{
		id:         id,
		options:    options,
		ring:       r,
		pool:       pool,
		conns:      newConnections(options.MaxConnections),
		waiting:    queue.New(),
		response:   response,
		listenerFd: listenerFd,
		wakeFd:     wakeFd,
		wakeBuf:    make([]byte, 8),
		logger:     logger,
		stats:      new(Stats),
		closeFd:    unix.Close,
	}
	if options.RegisterListener && listenerFd >= 0 {
		if regErr := r.RegisterListener(listenerFd); regErr != nil {
			if errors.Is(regErr, ring.ErrUnsupported) {
				loop.logger.Debug().Log("fixed listener unsupported, using raw fd")
			} else {
				loop.logger.Warning().Err(regErr).Log("register listener failed, using raw fd")
			}
		}
	}
	return loop, nil
}

func (options *Options) ringOptions() []ring.Option {
	opts := make([]ring.Option, 0, 4)
	opts = append(opts, ring.WithEntries(options.Entries))
	opts = append(opts, ring.WithBackend(options.Backend))
	opts = append(opts, ring.WithRegisterRingFd(options.RegisterRingFd))
	if options.SQPoll {
		opts = append(opts, ring.WithSQPoll(options.SQThreadIdle, -1))
	}
	return opts
}

// Loop
// 单线程事件循环：一个 ring，一个监听 fd，一个缓冲池，一张连接表。
// 除 Shutdown 与 Stats 外的方法都只能在运行 Run 的协程中调用。
type Loop struct {
	id         int
	options    Options
	ring       ring.Ring
	pool       *bytebuffers.Pool
	conns      *connections
	waiting    *queue.Queue
	response   []byte
	listenerFd int
	wakeMu     sync.Mutex
	wakeFd     int
	wakeBuf    []byte
	woken      bool
	closed     bool
	running    atomic.Bool
	stopped    bool
	logger     *logiface.Logger[logiface.Event]
	stats      *Stats
	closeFd    func(fd int) error
}

func (loop *Loop) Id() int {
	return loop.id
}

// Port
// 监听的本地端口。
func (loop *Loop) Port() (int, error) {
	return sys.LocalPort(loop.listenerFd)
}

func (loop *Loop) Stats() Snapshot {
	return loop.stats.Snapshot()
}

// Run
// 提交首个 accept 与唤醒读，然后循环 SubmitAndWait(1) 并分发完成事件，
// 直到 Shutdown、ctx 取消或致命错误。返回前释放 ring、监听 fd 与所有连接。
func (loop *Loop) Run(ctx context.Context) (err error) {
	if !loop.running.CompareAndSwap(false, true) {
		return ErrClosed
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if loop.options.PinCPU {
		if pinErr := process.SetCPUAffinity(loop.id); pinErr != nil {
			loop.logger.Warning().Err(pinErr).Log("pin cpu failed")
		}
	}

	defer loop.teardown()

	stop := context.AfterFunc(ctx, func() {
		_ = loop.Shutdown()
	})
	defer stop()

	loop.armAccept()
	loop.ring.PrepareWakeup(loop.wakeFd, loop.wakeBuf)

	features := loop.ring.Features()
	loop.logger.Info().
		Int("fd", loop.listenerFd).
		Bool("multishot", loop.options.Multishot && features.MultishotAccept).
		Bool("fixed_listener", features.RegisteredListener && loop.options.RegisterListener).
		Int("slots", loop.pool.Capacity()).
		Str("buffers", humanize.IBytes(uint64(loop.pool.Size()))).
		Str("mode", string(loop.options.Mode)).
		Log("event loop started")

	for !loop.stopped {
		if _, err = loop.ring.SubmitAndWait(1); err != nil {
			if ring.IsInterrupted(err) {
				err = nil
				continue
			}
			loop.logger.Err().Err(err).Log("submit and wait failed")
			err = errors.From(
				ErrFatal,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaOpKey, "submit_and_wait"),
				sys.WithErrno(err),
				errors.WithWrap(err),
			)
			return
		}
		if err = loop.drain(); err != nil {
			return
		}
	}
	return
}

// drain
// 分发本批完成事件。退出或出错后仍消费完本批，其中的 accept 结果直接关闭。
func (loop *Loop) drain() (err error) {
	for c := range loop.ring.Completions() {
		if loop.stopped || err != nil {
			loop.discard(c)
			continue
		}
		err = loop.dispatch(c)
	}
	return
}

// discard
// 连接尚未进入连接表，teardown 不会关闭它。
func (loop *Loop) discard(c ring.Completion) {
	if c.Operation().Kind != ring.Accept || c.Result < 0 {
		return
	}
	fd := int(c.Result)
	if closeErr := loop.closeFd(fd); closeErr != nil {
		loop.logger.Warning().Int("fd", fd).Err(closeErr).Log("close late accept failed")
	}
	loop.stats.closed.Add(1)
}

// Shutdown
// 唤醒阻塞中的循环使其退出，可在其他协程中调用，可重复调用。
func (loop *Loop) Shutdown() error {
	loop.wakeMu.Lock()
	defer loop.wakeMu.Unlock()
	if loop.closed {
		return ErrClosed
	}
	if loop.woken {
		return nil
	}
	b := make([]byte, 8)
	binary.NativeEndian.PutUint64(b, 1)
	if _, err := unix.Write(loop.wakeFd, b); err != nil && err != unix.EAGAIN {
		return err
	}
	loop.woken = true
	return nil
}

// Close
// 释放未运行的循环；运行中的循环等同于 Shutdown。
func (loop *Loop) Close() error {
	if loop.running.CompareAndSwap(false, true) {
		loop.teardown()
		return nil
	}
	if err := loop.Shutdown(); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

func (loop *Loop) teardown() {
	loop.wakeMu.Lock()
	loop.closed = true
	wakeFd := loop.wakeFd
	loop.wakeFd = -1
	loop.wakeMu.Unlock()

	if err := loop.ring.Close(); err != nil {
		loop.logger.Warning().Err(err).Log("close ring failed")
	}
	loop.conns.each(func(conn *connection) {
		if conn.owns {
			_ = loop.pool.Release(conn.slot)
			conn.owns = false
		}
		_ = loop.closeFd(conn.fd)
	})
	open := loop.conns.len()
	loop.conns = newConnections(0)
	for loop.waiting.Length() > 0 {
		loop.waiting.Remove()
	}
	if loop.listenerFd >= 0 {
		_ = loop.closeFd(loop.listenerFd)
		loop.listenerFd = -1
	}
	if wakeFd >= 0 {
		_ = unix.Close(wakeFd)
	}
	loop.logger.Info().
		Int("open_connections", open).
		Str("stats", loop.stats.Snapshot().String()).
		Log("event loop stopped")
}

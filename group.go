//go:build linux

package ringd

import (
	"context"

	"github.com/brickingsoft/ringd/pkg/cbpf"
	"github.com/brickingsoft/ringd/pkg/process"
	"github.com/brickingsoft/ringd/pkg/sys"
	"github.com/brickingsoft/rxp"
	"golang.org/x/sys/unix"
)

// Serve
// 按 options 创建事件循环组并运行，直到 ctx 取消或某个循环出现致命错误。
// 返回所有循环的计数汇总。
func Serve(ctx context.Context, options ...Option) (Snapshot, error) {
	opts, err := NewOptions(options...)
	if err != nil {
		return Snapshot{}, err
	}
	if opts.Priority != process.NORM {
		if prioErr := process.SetCurrentProcessPriority(opts.Priority); prioErr != nil {
			opts.Logger.Warning().Str("priority", opts.Priority.String()).Err(prioErr).Log("set process priority failed")
		}
	}
	group, err := NewGroup(opts)
	if err != nil {
		return Snapshot{}, err
	}
	return group.Run(ctx)
}

// Group
// 一组独立的事件循环。多于一个时各自监听同一端口（SO_REUSEPORT），
// 第一个监听 socket 上挂载按 CPU 分发的 cBPF 程序。
type Group struct {
	options Options
	loops   []*Loop
}

func NewGroup(options Options) (group *Group, err error) {
	workers := options.Workers
	if workers < 1 {
		workers = 1
	}
	reusePort := workers > 1
	group = &Group{
		options: options,
		loops:   make([]*Loop, 0, workers),
	}
	port := options.Port
	for i := 0; i < workers; i++ {
		fd, listenErr := sys.Listen(options.Address, port, sys.ListenOptions{
			Backlog:   options.Backlog,
			ReusePort: reusePort,
		})
		if listenErr != nil {
			group.closeLoops()
			return nil, newSetupError("listen", listenErr)
		}
		if i == 0 && reusePort {
			if port == 0 {
				if port, err = sys.LocalPort(fd); err != nil {
					_ = unix.Close(fd)
					group.closeLoops()
					return nil, newSetupError("listen", err)
				}
			}
			if attachErr := cbpf.NewFilter(uint32(workers)).ApplyTo(fd); attachErr != nil {
				options.Logger.Warning().Err(attachErr).Log("reuseport steering unavailable, kernel hash is used")
			}
		}
		loop, loopErr := newLoop(i, fd, options)
		if loopErr != nil {
			_ = unix.Close(fd)
			group.closeLoops()
			return nil, loopErr
		}
		group.loops = append(group.loops, loop)
	}
	return group, nil
}

func (group *Group) Loops() []*Loop {
	return group.loops
}

// loopTask
// 在 rxp 的 goroutine 上运行一个循环，ctx 来自执行器（派生自 Group.Run 的 ctx）。
type loopTask struct {
	loop    *Loop
	results chan<- error
}

var _ rxp.Task = loopTask{}

func (task loopTask) Handle(ctx context.Context) {
	task.results <- task.loop.Run(ctx)
}

// Run
// 在 rxp 执行器上运行全部循环，第一个致命错误会取消其余循环。
func (group *Group) Run(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	executors, execErr := rxp.New(rxp.WithContext(ctx))
	if execErr != nil {
		group.closeLoops()
		return Snapshot{}, newSetupError("executors", execErr)
	}
	defer func() {
		_ = executors.Close()
	}()

	results := make(chan error, len(group.loops))
	for _, loop := range group.loops {
		if err := executors.Execute(ctx, loopTask{loop: loop, results: results}); err != nil {
			_ = loop.Close()
			results <- newSetupError("execute", err)
		}
	}

	var first error
	for range group.loops {
		if err := <-results; err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return group.Stats(), first
}

// Shutdown
// 通知所有循环退出。
func (group *Group) Shutdown() {
	for _, loop := range group.loops {
		_ = loop.Shutdown()
	}
}

func (group *Group) Stats() Snapshot {
	var sum Snapshot
	for _, loop := range group.loops {
		sum = sum.Add(loop.Stats())
	}
	return sum
}

func (group *Group) closeLoops() {
	for _, loop := range group.loops {
		_ = loop.Close()
	}
	group.loops = group.loops[:0]
}

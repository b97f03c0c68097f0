package ringd

import (
	"runtime"
	"strconv"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd/pkg/process"
	"github.com/joeycumines/logiface"
)

const (
	DefaultAddress        = "0.0.0.0"
	DefaultPort           = 8000
	DefaultEntries        = 1024
	DefaultMaxConnections = 2048
	DefaultBufferSize     = 1024
)

type Mode string

const (
	// ModeStatic 每次收到数据都回复固定响应。
	ModeStatic Mode = "static"
	// ModeEcho 原样回写收到的数据。
	ModeEcho Mode = "echo"
)

type ErrorPolicy string

const (
	// PolicyIsolate 只关闭出错的连接，循环继续。
	PolicyIsolate ErrorPolicy = "isolate"
	// PolicyFailFast 任何非对端错误都终止循环。
	PolicyFailFast ErrorPolicy = "failfast"
)

type Options struct {
	Address          string
	Port             int
	Entries          uint32
	MaxConnections   int
	BufferSize       int
	Backlog          int
	Mode             Mode
	Response         []byte
	Multishot        bool
	RegisterListener bool
	RegisterRingFd   bool
	SQPoll           bool
	SQThreadIdle     time.Duration
	Backend          string
	Workers          int
	PinCPU           bool
	Priority         process.PriorityLevel
	ErrorPolicy      ErrorPolicy
	Logger           *logiface.Logger[logiface.Event]
}

func defaultOptions() Options {
	return Options{
		Address:          DefaultAddress,
		Port:             DefaultPort,
		Entries:          DefaultEntries,
		MaxConnections:   DefaultMaxConnections,
		BufferSize:       DefaultBufferSize,
		Mode:             ModeStatic,
		Response:         StandardResponse(),
		Multishot:        true,
		RegisterListener: true,
		Workers:          1,
		Priority:         process.NORM,
		ErrorPolicy:      PolicyIsolate,
	}
}

// NewOptions
// 在默认值上依次应用 options。
func NewOptions(options ...Option) (Options, error) {
	opts := defaultOptions()
	for _, o := range options {
		if err := o(&opts); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

type Option func(options *Options) (err error)

func invalidOption(name string, value string) error {
	return errors.From(
		ErrInvalidOption,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta("option", name),
		errors.WithMeta("value", value),
	)
}

// WithAddress
// 设置监听地址，默认 0.0.0.0。
func WithAddress(address string) Option {
	return func(options *Options) (err error) {
		if address != "" {
			options.Address = address
		}
		return
	}
}

// WithPort
// 设置监听端口，默认 8000，0 为由内核分配。
func WithPort(port int) Option {
	return func(options *Options) (err error) {
		if port < 0 || port > 65535 {
			err = invalidOption("port", strconv.Itoa(port))
			return
		}
		options.Port = port
		return
	}
}

// WithEntries
// 设置 ring 的 SQ 大小，默认 1024。
func WithEntries(entries uint32) Option {
	return func(options *Options) (err error) {
		if entries == 0 {
			err = invalidOption("entries", "0")
			return
		}
		options.Entries = entries
		return
	}
}

// WithMaxConnections
// 设置缓冲池槽数，即同时在读的最大连接数。
//
// 超出的连接不会被拒绝，而是排队等待空闲槽。
func WithMaxConnections(maxConnections int) Option {
	return func(options *Options) (err error) {
		if maxConnections < 1 {
			err = invalidOption("max_connections", strconv.Itoa(maxConnections))
			return
		}
		options.MaxConnections = maxConnections
		return
	}
}

// WithBufferSize
// 设置每个槽的字节数，默认 1024。
func WithBufferSize(size int) Option {
	return func(options *Options) (err error) {
		if size < 1 {
			err = invalidOption("buffer_size", strconv.Itoa(size))
			return
		}
		options.BufferSize = size
		return
	}
}

// WithBacklog
// 设置 listen 的 backlog，小于等于 0 时使用 somaxconn。
func WithBacklog(backlog int) Option {
	return func(options *Options) (err error) {
		options.Backlog = backlog
		return
	}
}

// WithMode
// 设置响应模式，static 或 echo。
func WithMode(mode Mode) Option {
	return func(options *Options) (err error) {
		switch mode {
		case "":
			options.Mode = ModeStatic
		case ModeStatic, ModeEcho:
			options.Mode = mode
		default:
			err = invalidOption("mode", string(mode))
		}
		return
	}
}

// WithResponse
// 设置 static 模式下的完整响应字节。
func WithResponse(response []byte) Option {
	return func(options *Options) (err error) {
		if len(response) == 0 {
			err = invalidOption("response", "")
			return
		}
		options.Response = append([]byte(nil), response...)
		return
	}
}

// WithMultishotAccept
// 是否使用 multishot accept，内核不支持时自动退化为单次 accept。
func WithMultishotAccept(multishot bool) Option {
	return func(options *Options) (err error) {
		options.Multishot = multishot
		return
	}
}

// WithRegisterListener
// 是否把监听 fd 注册为固定文件。
func WithRegisterListener(register bool) Option {
	return func(options *Options) (err error) {
		options.RegisterListener = register
		return
	}
}

// WithRegisterRingFd
// 是否注册 ring fd。
func WithRegisterRingFd(register bool) Option {
	return func(options *Options) (err error) {
		options.RegisterRingFd = register
		return
	}
}

// WithSQPoll
// 开启 SQPOLL，idle 为内核轮询线程空闲多久后休眠。
func WithSQPoll(idle time.Duration) Option {
	return func(options *Options) (err error) {
		if idle < 0 {
			err = invalidOption("sqpoll_idle", idle.String())
			return
		}
		options.SQPoll = true
		options.SQThreadIdle = idle
		return
	}
}

// WithBackend
// 设置 ring 实现，liburing 或 giouring。
func WithBackend(backend string) Option {
	return func(options *Options) (err error) {
		options.Backend = backend
		return
	}
}

// WithWorkers
// 设置事件循环数量，默认 1。
//
// 大于 1 时每个循环独立监听同一端口（SO_REUSEPORT），由 cBPF 按 CPU 分发连接。
// 最大为 runtime.NumCPU()。
func WithWorkers(workers int) Option {
	return func(options *Options) (err error) {
		if workers < 1 {
			err = invalidOption("workers", strconv.Itoa(workers))
			return
		}
		if n := runtime.NumCPU(); workers > n {
			workers = n
		}
		options.Workers = workers
		return
	}
}

// WithPinCPU
// 是否把第 i 个事件循环的线程绑定到第 i 个 CPU。
func WithPinCPU(pin bool) Option {
	return func(options *Options) (err error) {
		options.PinCPU = pin
		return
	}
}

// WithPriority
// 设置进程优先级。
func WithPriority(level process.PriorityLevel) Option {
	return func(options *Options) (err error) {
		options.Priority = level
		return
	}
}

// WithErrorPolicy
// 设置非对端错误的处理策略，默认 isolate。
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(options *Options) (err error) {
		switch policy {
		case "":
			options.ErrorPolicy = PolicyIsolate
		case PolicyIsolate, PolicyFailFast:
			options.ErrorPolicy = policy
		default:
			err = invalidOption("error_policy", string(policy))
		}
		return
	}
}

// WithLogger
// 设置日志，nil 时不输出。
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(options *Options) (err error) {
		options.Logger = logger
		return
	}
}

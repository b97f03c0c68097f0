package ringd

import (
	"strconv"
	"syscall"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd/pkg/ring"
	"github.com/brickingsoft/ringd/pkg/sys"
)

var (
	ErrSetup         = errors.Define("ringd: setup failed")
	ErrFatal         = errors.Define("ringd: event loop failed")
	ErrClosed        = errors.Define("ringd: event loop closed")
	ErrInvalidOption = errors.Define("ringd: invalid option")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "ringd"
	errMetaOpKey  = "op"
	errMetaFdKey  = "fd"
)

// IsBenignPeerError
// 对端关闭或重置连接，只记录警告。
func IsBenignPeerError(errno syscall.Errno) bool {
	return errno == syscall.EPIPE || errno == syscall.ECONNRESET
}

// transient accept failures, the listener itself is still usable
func isTransientAcceptError(errno syscall.Errno) bool {
	switch errno {
	case syscall.EMFILE, syscall.ENFILE, syscall.ENOBUFS, syscall.ENOMEM,
		syscall.ECONNABORTED, syscall.EAGAIN, syscall.EINTR:
		return true
	default:
		return false
	}
}

func newSetupError(stage string, cause error) error {
	return errors.From(
		ErrSetup,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, stage),
		sys.WithErrno(cause),
		errors.WithWrap(cause),
	)
}

func newFatalError(op ring.Operation, cause error) error {
	return errors.From(
		ErrFatal,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op.Kind.String()),
		errors.WithMeta(errMetaFdKey, strconv.Itoa(int(op.Fd))),
		sys.WithErrno(cause),
		errors.WithWrap(cause),
	)
}

// ExitCode
// nil 为 0；错误链中有 errno（类型或元数据）时返回 errno，否则为 1。
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errno, ok := sys.ErrnoOf(err); ok {
		return int(errno)
	}
	return 1
}

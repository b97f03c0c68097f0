package ring

import (
	"syscall"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd/pkg/sys"
)

var (
	ErrRingInit    = errors.Define("ring init failed")
	ErrSubmit      = errors.Define("ring submit failed")
	ErrClosed      = errors.Define("ring closed")
	ErrUnsupported = errors.Define("ring operation unsupported")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "ring"
	errMetaOpKey  = "op"
)

// IsInterrupted
// 等待被信号打断，调用方应直接重试。
func IsInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

func newInitError(backend string, cause error) error {
	return errors.From(
		ErrRingInit,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta("backend", backend),
		sys.WithErrno(cause),
		errors.WithWrap(cause),
	)
}

func newSubmitError(cause error) error {
	if errors.Is(cause, syscall.EINTR) {
		return cause
	}
	return errors.From(
		ErrSubmit,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, "submit_and_wait"),
		sys.WithErrno(cause),
		errors.WithWrap(cause),
	)
}

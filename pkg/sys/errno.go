package sys

import (
	"strconv"
	"syscall"

	"github.com/brickingsoft/errors"
)

// ErrnoMetaKey
// errno 在错误元数据中的键。
const ErrnoMetaKey = "errno"

// WithErrno
// cause 中含有 syscall.Errno 时写入元数据。
// errors.WithWrap 只保留被包裹错误的文本，errno 需要随元数据传递。
func WithErrno(cause error) errors.Option {
	return func(options *errors.Options) {
		var errno syscall.Errno
		if errors.As(cause, &errno) && errno != 0 {
			errors.WithMeta(ErrnoMetaKey, int(errno))(options)
		}
	}
}

// ErrnoOf
// 取错误链中的 errno，先按类型查找，再沿 EnhancedError 链读取元数据。
func ErrnoOf(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return errno, true
	}
	for ee, ok := errors.AsEnhancedError(err); ok && ee != nil; ee = ee.Wrapped {
		for _, meta := range ee.Meta {
			if meta.Key != ErrnoMetaKey {
				continue
			}
			if n, convErr := strconv.Atoi(meta.Value); convErr == nil && n > 0 {
				return syscall.Errno(n), true
			}
		}
	}
	return 0, false
}

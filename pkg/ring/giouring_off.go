//go:build linux && !giouring

package ring

import (
	"github.com/brickingsoft/errors"
)

// newGiouringEngine
// giouring 通过 go:linkname 引用 syscall.munmap，需要 -tags giouring 与
// -ldflags=-checklinkname=0 才能链接，默认构建不包含该实现。
func newGiouringEngine(_ Options) (engine, error) {
	return nil, errors.From(
		ErrUnsupported,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta("backend", BackendGiouring),
		errors.WithMeta("build", "missing giouring tag"),
	)
}

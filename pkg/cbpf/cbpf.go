//go:build linux

package cbpf

import (
	"os"
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

var ErrAttach = errors.Define("attach reuseport filter failed")

const (
	skfAdOffPlusKSkfAdCPU = 4294963236
	cpuIdSize             = 4
)

// NewFilter
// 按处理软中断的 CPU 选择 reuseport 组中的 socket：cpu % sockets。
// 组内 socket 的顺序即 bind 的顺序。
func NewFilter(sockets uint32) Filter {
	return Filter{
		bpf.LoadAbsolute{Off: skfAdOffPlusKSkfAdCPU, Size: cpuIdSize},
		bpf.ALUOpConstant{Op: bpf.ALUOpMod, Val: sockets},
		bpf.RetA{},
	}
}

type Filter []bpf.Instruction

func (f Filter) ApplyTo(fd int) error {
	assembled, err := bpf.Assemble(f)
	if err != nil {
		return errors.From(ErrAttach, errors.WithWrap(err))
	}
	program := unix.SockFprog{
		Len:    uint16(len(assembled)),
		Filter: (*unix.SockFilter)(unsafe.Pointer(&assembled[0])),
	}
	if err = unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_REUSEPORT_CBPF, &program); err != nil {
		return errors.From(ErrAttach, errors.WithWrap(os.NewSyscallError("setsockopt", err)))
	}
	return nil
}

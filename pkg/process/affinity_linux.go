//go:build linux

package process

import (
	"os"
	"runtime"
	"strconv"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
)

var ErrAffinity = errors.Define("set cpu affinity failed")

// SetCPUAffinity
// 将当前线程绑定到 index % NumCPU 号 CPU，调用前需要 runtime.LockOSThread。
func SetCPUAffinity(index int) error {
	var newMask unix.CPUSet
	newMask.Zero()

	cpuIndex := index % runtime.NumCPU()
	newMask.Set(cpuIndex)

	if err := unix.SchedSetaffinity(0, &newMask); err != nil {
		return errors.From(
			ErrAffinity,
			errors.WithMeta("cpu", strconv.Itoa(cpuIndex)),
			errors.WithWrap(os.NewSyscallError("sched_setaffinity", err)),
		)
	}
	return nil
}

//go:build unix

package process

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

type PriorityLevel int

const (
	NORM PriorityLevel = iota
	IDLE
	HIGH
	REALTIME
)

// ParsePriority
// 解析 norm、idle、high、realtime，未知值返回 NORM 与 false。
func ParsePriority(s string) (PriorityLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "norm", "normal":
		return NORM, true
	case "idle":
		return IDLE, true
	case "high":
		return HIGH, true
	case "realtime":
		return REALTIME, true
	default:
		return NORM, false
	}
}

func (level PriorityLevel) String() string {
	switch level {
	case IDLE:
		return "idle"
	case HIGH:
		return "high"
	case REALTIME:
		return "realtime"
	default:
		return "norm"
	}
}

// SetCurrentProcessPriority
// 设置进程 nice 值，提高优先级需要 CAP_SYS_NICE。
func SetCurrentProcessPriority(level PriorityLevel) (err error) {
	n := 0
	switch level {
	case REALTIME:
		n = -19
	case HIGH:
		n = -15
	case IDLE:
		n = 15
	}
	if err = unix.Setpriority(unix.PRIO_PROCESS, os.Getpid(), n); err != nil {
		err = os.NewSyscallError("setpriority", err)
	}
	return
}

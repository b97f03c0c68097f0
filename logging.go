package ringd

import (
	"io"
	"os"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// NewLogger
// 基于 stumpy 的 JSON 日志，w 为 nil 时写到 stderr。
func NewLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
			stumpy.WithTimeField("time"),
		),
		stumpy.L.WithLevel(level),
	).Logger()
}

// ParseLevel
// 解析 syslog 风格的级别名，同时接受 error、warn 等常用别名。
func ParseLevel(s string) (logiface.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info", "informational":
		return logiface.LevelInformational, true
	case "trace":
		return logiface.LevelTrace, true
	case "debug":
		return logiface.LevelDebug, true
	case "notice":
		return logiface.LevelNotice, true
	case "warning", "warn":
		return logiface.LevelWarning, true
	case "err", "error":
		return logiface.LevelError, true
	case "crit", "critical":
		return logiface.LevelCritical, true
	case "off", "disabled", "none":
		return logiface.LevelDisabled, true
	default:
		return logiface.LevelInformational, false
	}
}

package ringd_test

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/brickingsoft/ringd"
)

func TestExitCode(t *testing.T) {
	if code := ringd.ExitCode(nil); code != 0 {
		t.Error("nil:", code)
	}
	if code := ringd.ExitCode(syscall.EADDRINUSE); code != int(syscall.EADDRINUSE) {
		t.Error("errno:", code)
	}
	if code := ringd.ExitCode(fmt.Errorf("bind: %w", syscall.EACCES)); code != int(syscall.EACCES) {
		t.Error("wrapped errno:", code)
	}
	if code := ringd.ExitCode(errors.New("boom")); code != 1 {
		t.Error("plain:", code)
	}
}

func TestIsBenignPeerError(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.EPIPE, syscall.ECONNRESET} {
		if !ringd.IsBenignPeerError(errno) {
			t.Error(errno, "should be benign")
		}
	}
	for _, errno := range []syscall.Errno{syscall.EBADF, syscall.EINVAL, syscall.ENOMEM} {
		if ringd.IsBenignPeerError(errno) {
			t.Error(errno, "should not be benign")
		}
	}
}

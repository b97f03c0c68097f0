//go:build linux

package ring_test

import (
	"encoding/binary"
	"github.com/brickingsoft/errors"
	"testing"

	"github.com/brickingsoft/ringd/pkg/ring"
	"golang.org/x/sys/unix"
)

func newRing(t *testing.T, options ...ring.Option) ring.Ring {
	t.Helper()
	r, err := ring.New(options...)
	if err != nil {
		if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EPERM) {
			t.Skip("io_uring unavailable:", err)
		}
		t.Fatal(err)
	}
	return r
}

func TestRing_Wakeup(t *testing.T) {
	r := newRing(t, ring.WithEntries(8))
	defer r.Close()
	t.Log("features:", r.Features())

	efd, efdErr := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if efdErr != nil {
		t.Error(efdErr)
		return
	}
	defer unix.Close(efd)

	b := make([]byte, 8)
	r.PrepareWakeup(efd, b)

	one := make([]byte, 8)
	binary.LittleEndian.PutUint64(one, 1)
	if _, err := unix.Write(efd, one); err != nil {
		t.Error(err)
		return
	}

	for {
		if _, err := r.SubmitAndWait(1); err != nil {
			if ring.IsInterrupted(err) {
				continue
			}
			t.Error(err)
			return
		}
		break
	}
	n := 0
	for c := range r.Completions() {
		n++
		op := c.Operation()
		if op.Kind != ring.Wakeup || int(op.Fd) != efd {
			t.Error("unexpected operation:", op)
		}
		if c.Result != 8 {
			t.Error("unexpected result:", c.Result)
		}
	}
	if n != 1 {
		t.Error("completions:", n)
	}
}

func TestRing_Close(t *testing.T) {
	r := newRing(t, ring.WithEntries(4), ring.WithRegisterRingFd(true))
	if err := r.Close(); err != nil {
		t.Error(err)
		return
	}
	if err := r.Close(); !errors.Is(err, ring.ErrClosed) {
		t.Error("second close:", err)
	}
}

func TestWithBackend_Unknown(t *testing.T) {
	_, err := ring.New(ring.WithBackend("epoll"))
	if !errors.Is(err, ring.ErrRingInit) {
		t.Error("expected init error:", err)
	}
}

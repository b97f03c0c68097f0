//go:build linux && !giouring

package ring_test

import (
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd/pkg/ring"
)

func TestWithBackend_GiouringWithoutTag(t *testing.T) {
	_, err := ring.New(ring.WithBackend(ring.BackendGiouring))
	if !errors.Is(err, ring.ErrRingInit) {
		t.Error("expected init error:", err)
		return
	}
	if !errors.Is(err, ring.ErrUnsupported) {
		t.Error("expected unsupported backend:", err)
	}
}

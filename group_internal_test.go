//go:build linux

package ringd

import (
	"context"
	"syscall"
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_Run(t *testing.T) {
	first := newTestLoop(t)
	second := newTestLoop(t)
	group := &Group{loops: []*Loop{first.Loop, second.Loop}}

	stats, err := group.Run(context.Background())
	require.NoError(t, err)
	// one wakeup completion per loop
	assert.Equal(t, uint64(2), stats.Completions)
	assert.Equal(t, 1, first.fake.closed)
	assert.Equal(t, 1, second.fake.closed)
}

func TestGroup_RunFirstErrorStopsOthers(t *testing.T) {
	healthy := newTestLoop(t)
	failing := newTestLoop(t)
	failing.fake.errs = []error{syscall.EBADF}
	group := &Group{loops: []*Loop{healthy.Loop, failing.Loop}}

	_, err := group.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFatal))
	assert.Equal(t, int(syscall.EBADF), ExitCode(err))
	assert.Equal(t, 1, healthy.fake.closed)
	assert.Equal(t, 1, failing.fake.closed)
}

func TestGroup_RunCanceled(t *testing.T) {
	tl := newTestLoop(t)
	group := &Group{loops: []*Loop{tl.Loop}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := group.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tl.fake.closed)
}

//go:build linux

package sys_test

import (
	"net"
	"strconv"
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd/pkg/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestListen(t *testing.T) {
	fd, err := sys.Listen("127.0.0.1", 0, sys.ListenOptions{Backlog: 16})
	require.NoError(t, err)
	defer unix.Close(fd)

	port, portErr := sys.LocalPort(fd)
	require.NoError(t, portErr)
	assert.NotZero(t, port)

	conn, dialErr := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, dialErr)
	_ = conn.Close()
}

func TestListen_ReusePort(t *testing.T) {
	fd1, err := sys.Listen("127.0.0.1", 0, sys.ListenOptions{ReusePort: true})
	require.NoError(t, err)
	defer unix.Close(fd1)
	port, _ := sys.LocalPort(fd1)

	fd2, err := sys.Listen("127.0.0.1", port, sys.ListenOptions{ReusePort: true})
	require.NoError(t, err)
	defer unix.Close(fd2)
}

func TestListen_AddrInUse(t *testing.T) {
	fd, err := sys.Listen("127.0.0.1", 0, sys.ListenOptions{})
	require.NoError(t, err)
	defer unix.Close(fd)
	port, _ := sys.LocalPort(fd)

	_, err = sys.Listen("127.0.0.1", port, sys.ListenOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sys.ErrBind))
	errno, ok := sys.ErrnoOf(err)
	assert.True(t, ok)
	assert.Equal(t, unix.EADDRINUSE, errno)
	t.Log(err)
}

func TestListen_BadAddress(t *testing.T) {
	_, err := sys.Listen("127.0.0.1", 70000, sys.ListenOptions{})
	assert.True(t, errors.Is(err, sys.ErrBind))
}

func TestMaxListenerBacklog(t *testing.T) {
	n := sys.MaxListenerBacklog()
	assert.Greater(t, n, 0)
	t.Log("somaxconn:", n)
}

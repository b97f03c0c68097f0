//go:build linux

package ringd_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd"
	"github.com/brickingsoft/ringd/pkg/ring"
	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

func newLoop(t *testing.T, options ...ringd.Option) *ringd.Loop {
	t.Helper()
	options = append([]ringd.Option{
		ringd.WithAddress("127.0.0.1"),
		ringd.WithPort(0),
		ringd.WithEntries(64),
		ringd.WithMaxConnections(64),
		ringd.WithLogger(ringd.NewLogger(nil, logiface.LevelWarning)),
	}, options...)
	loop, err := ringd.New(options...)
	if err != nil {
		if errors.Is(err, ring.ErrRingInit) {
			t.Skip("io_uring unavailable:", err)
		}
		t.Fatal(err)
	}
	return loop
}

func runLoop(t *testing.T, loop *ringd.Loop) (addr string, done <-chan error) {
	t.Helper()
	port, err := loop.Port()
	require.NoError(t, err)
	ch := make(chan error, 1)
	go func() {
		ch <- loop.Run(context.Background())
	}()
	t.Cleanup(func() {
		_ = loop.Shutdown()
	})
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), ch
}

func roundTrip(t *testing.T, conn net.Conn, request []byte, expect []byte) {
	t.Helper()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err := conn.Write(request)
	require.NoError(t, err)
	got := make([]byte, len(expect))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	require.Equal(t, expect, got)
}

func TestLoop_Serve(t *testing.T) {
	loop := newLoop(t)
	addr, done := runLoop(t, loop)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// the connection stays open across exchanges
	for i := 0; i < 3; i++ {
		roundTrip(t, conn, []byte("x"), ringd.StandardResponse())
	}
	require.Eventually(t, func() bool {
		return loop.Stats().Responses == 3
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, loop.Shutdown())
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	stats := loop.Stats()
	t.Log(stats)
	if stats.Responses != 3 || stats.Accepted != 1 {
		t.Error("unexpected stats:", stats)
	}
}

func TestLoop_Echo(t *testing.T) {
	loop := newLoop(t, ringd.WithMode(ringd.ModeEcho))
	addr, _ := runLoop(t, loop)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	roundTrip(t, conn, []byte("hello"), []byte("hello"))
	roundTrip(t, conn, []byte("again"), []byte("again"))
}

func TestLoop_PeerClose(t *testing.T) {
	loop := newLoop(t)
	addr, done := runLoop(t, loop)

	silent, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, silent.Close())

	// a reset peer does not stop the loop
	reset, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	roundTrip(t, reset, []byte("x"), ringd.StandardResponse())
	require.NoError(t, reset.(*net.TCPConn).SetLinger(0))
	require.NoError(t, reset.Close())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	roundTrip(t, conn, []byte("x"), ringd.StandardResponse())

	require.Eventually(t, func() bool {
		return loop.Stats().Closed >= 2
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case err = <-done:
		t.Fatal("loop stopped:", err)
	default:
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	loop := newLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	if err := loop.Shutdown(); !errors.Is(err, ringd.ErrClosed) {
		t.Error("shutdown after stop:", err)
	}
}

func TestServe_Group(t *testing.T) {
	options, err := ringd.NewOptions(
		ringd.WithAddress("127.0.0.1"),
		ringd.WithPort(0),
		ringd.WithEntries(64),
		ringd.WithMaxConnections(64),
		ringd.WithWorkers(2),
	)
	require.NoError(t, err)
	group, err := ringd.NewGroup(options)
	if err != nil {
		if errors.Is(err, ring.ErrRingInit) {
			t.Skip("io_uring unavailable:", err)
		}
		t.Fatal(err)
	}
	port, err := group.Loops()[0].Port()
	require.NoError(t, err)
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	type result struct {
		stats ringd.Snapshot
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, runErr := group.Run(context.Background())
		done <- result{stats, runErr}
	}()

	for i := 0; i < 8; i++ {
		conn, dialErr := net.Dial("tcp", addr)
		require.NoError(t, dialErr)
		roundTrip(t, conn, []byte("x"), ringd.StandardResponse())
		_ = conn.Close()
	}
	require.Eventually(t, func() bool {
		return group.Stats().Responses == 8
	}, 5*time.Second, 10*time.Millisecond)

	group.Shutdown()
	select {
	case r := <-done:
		require.NoError(t, r.err)
		if r.stats.Responses != 8 {
			t.Error("responses:", r.stats.Responses)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("group did not stop")
	}
}

func TestLoop_ManyClients(t *testing.T) {
	loop := newLoop(t, ringd.WithMaxConnections(8))
	addr, _ := runLoop(t, loop)

	// more clients than buffer slots, parked connections are served as slots free up
	conns := make([]net.Conn, 32)
	for i := range conns {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		conns[i] = conn
	}
	for i, conn := range conns {
		roundTrip(t, conn, []byte{byte(i)}, ringd.StandardResponse())
		_ = conn.Close()
	}
	if !bytes.Equal(ringd.StandardResponse(), ringd.BuildResponse("text/html", []byte("Have a nice day!\n"))) {
		t.Error("standard response changed")
	}
}

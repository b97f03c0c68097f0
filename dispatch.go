//go:build linux

package ringd

import (
	"syscall"

	"github.com/brickingsoft/ringd/pkg/ring"
)

func (loop *Loop) armAccept() {
	loop.ring.PrepareAccept(loop.listenerFd, loop.options.Multishot)
}

// dispatch
// 处理一个完成事件。返回错误时循环终止。
func (loop *Loop) dispatch(c ring.Completion) error {
	loop.stats.completions.Add(1)
	op := c.Operation()
	loop.logger.Debug().
		Str("op", op.Kind.String()).
		Int("fd", int(op.Fd)).
		Int("res", int(c.Result)).
		Bool("more", c.More()).
		Log("completion")

	if c.Result < 0 {
		return loop.failed(op, syscall.Errno(-c.Result), c.More())
	}
	switch op.Kind {
	case ring.Accept:
		loop.accepted(int(c.Result), c.More())
	case ring.Receive:
		loop.received(int(op.Fd), int(c.Result))
	case ring.Send:
		loop.sent(int(op.Fd), int(c.Result))
	case ring.Close:
		loop.stats.closed.Add(1)
	case ring.Wakeup:
		loop.stopped = true
		loop.logger.Info().Log("shutdown requested")
	default:
		loop.logger.Warning().Uint64("tag", c.Tag).Log("completion with unknown tag")
	}
	return nil
}

func (loop *Loop) failed(op ring.Operation, errno syscall.Errno, more bool) error {
	fd := int(op.Fd)
	switch op.Kind {
	case ring.Accept:
		loop.stats.errors.Add(1)
		if isTransientAcceptError(errno) {
			loop.logger.Warning().Err(errno).Log("accept failed, retrying")
			if !more {
				loop.armAccept()
			}
			return nil
		}
		loop.logger.Err().Err(errno).Log("accept failed")
		return newFatalError(op, errno)
	case ring.Receive, ring.Send:
		if IsBenignPeerError(errno) {
			loop.stats.peerErrors.Add(1)
			loop.logger.Warning().Str("op", op.Kind.String()).Int("fd", fd).Err(errno).Log("connection dropped by peer")
			loop.closeConnection(fd)
			return nil
		}
		loop.stats.errors.Add(1)
		loop.logger.Err().Str("op", op.Kind.String()).Int("fd", fd).Err(errno).Log("operation failed")
		loop.closeConnection(fd)
		if loop.options.ErrorPolicy == PolicyFailFast {
			return newFatalError(op, errno)
		}
		return nil
	case ring.Close:
		loop.stats.errors.Add(1)
		loop.logger.Warning().Int("fd", fd).Err(errno).Log("close failed")
		return nil
	case ring.Wakeup:
		loop.logger.Err().Err(errno).Log("wakeup read failed")
		return newFatalError(op, errno)
	default:
		loop.logger.Warning().Str("op", op.String()).Err(errno).Log("completion with unknown tag")
		return nil
	}
}

func (loop *Loop) accepted(fd int, more bool) {
	if !more {
		loop.armAccept()
	}
	loop.stats.accepted.Add(1)
	if stale, exists := loop.conns.get(fd); exists {
		// the kernel handed out the same fd again, so the old one is gone
		loop.releaseSlot(stale)
		loop.conns.remove(fd)
	}
	conn := loop.conns.add(fd)
	loop.receive(conn)
}

// receive
// 取一个空闲槽并提交 Receive；没有空闲槽时连接排队等待。
func (loop *Loop) receive(conn *connection) {
	slot, err := loop.pool.Next()
	if err != nil {
		conn.state = awaitingSlot
		loop.waiting.Add(conn.fd)
		loop.stats.parked.Add(1)
		loop.logger.Debug().Int("fd", conn.fd).Log("buffers exhausted, connection parked")
		return
	}
	conn.slot = slot
	conn.owns = true
	conn.state = awaitingReceive
	loop.ring.PrepareReceive(conn.fd, slot.Bytes)
}

func (loop *Loop) received(fd int, n int) {
	conn, ok := loop.conns.get(fd)
	if !ok {
		loop.logger.Warning().Int("fd", fd).Log("receive for unknown connection")
		return
	}
	if n == 0 {
		loop.closeConnection(fd)
		return
	}
	loop.stats.received.Add(uint64(n))
	conn.state = awaitingSend
	switch loop.options.Mode {
	case ModeEcho:
		conn.pending = conn.slot.Bytes[:n]
	default:
		conn.pending = loop.response
		loop.releaseSlot(conn)
	}
	loop.ring.PrepareSend(fd, conn.pending)
}

func (loop *Loop) sent(fd int, n int) {
	conn, ok := loop.conns.get(fd)
	if !ok {
		loop.logger.Warning().Int("fd", fd).Log("send for unknown connection")
		return
	}
	loop.stats.sent.Add(uint64(n))
	if n < len(conn.pending) {
		conn.pending = conn.pending[n:]
		loop.ring.PrepareSend(fd, conn.pending)
		return
	}
	conn.pending = nil
	loop.stats.responses.Add(1)
	loop.releaseSlot(conn)
	loop.receive(conn)
}

// closeConnection
// 释放槽、移出连接表并提交 Close。已经移除的连接不会再次 Close。
func (loop *Loop) closeConnection(fd int) {
	conn, ok := loop.conns.get(fd)
	if !ok {
		return
	}
	conn.pending = nil
	loop.releaseSlot(conn)
	loop.conns.remove(fd)
	loop.ring.PrepareClose(fd)
}

func (loop *Loop) releaseSlot(conn *connection) {
	if !conn.owns {
		return
	}
	if err := loop.pool.Release(conn.slot); err != nil {
		loop.logger.Err().Int("fd", conn.fd).Err(err).Log("release buffer failed")
	}
	conn.owns = false
	loop.resumeParked()
}

// resumeParked
// 把空出的槽交给等待最久的连接。
func (loop *Loop) resumeParked() {
	for loop.waiting.Length() > 0 {
		fd := loop.waiting.Remove().(int)
		conn, ok := loop.conns.get(fd)
		if !ok || conn.state != awaitingSlot {
			continue
		}
		loop.receive(conn)
		return
	}
}

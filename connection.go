package ringd

import (
	"github.com/brickingsoft/ringd/pkg/bytebuffers"
)

type connectionState uint8

const (
	awaitingReceive connectionState = iota + 1
	awaitingSlot
	awaitingSend
)

func (state connectionState) String() string {
	switch state {
	case awaitingReceive:
		return "awaiting_receive"
	case awaitingSlot:
		return "awaiting_slot"
	case awaitingSend:
		return "awaiting_send"
	default:
		return "unknown"
	}
}

// connection
// 一个已接受连接的状态，以及它当前占用的缓冲槽。
type connection struct {
	fd      int
	state   connectionState
	slot    bytebuffers.Slot
	owns    bool
	pending []byte
}

// connections
// fd 到连接的映射，由事件循环独占。
type connections struct {
	entries map[int]*connection
}

func newConnections(capacity int) *connections {
	return &connections{
		entries: make(map[int]*connection, capacity),
	}
}

func (table *connections) add(fd int) *connection {
	conn := &connection{fd: fd}
	table.entries[fd] = conn
	return conn
}

func (table *connections) get(fd int) (*connection, bool) {
	conn, ok := table.entries[fd]
	return conn, ok
}

func (table *connections) remove(fd int) {
	delete(table.entries, fd)
}

func (table *connections) len() int {
	return len(table.entries)
}

func (table *connections) each(fn func(conn *connection)) {
	for _, conn := range table.entries {
		fn(conn)
	}
}

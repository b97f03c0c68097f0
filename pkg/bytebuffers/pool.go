package bytebuffers

import (
	"strconv"

	"github.com/brickingsoft/errors"
)

var (
	ErrExhausted    = errors.Define("bytebuffers: all slots are in flight")
	ErrInvalidSize  = errors.Define("bytebuffers: invalid pool size")
	ErrNotInFlight  = errors.Define("bytebuffers: slot is not in flight")
	ErrSlotNotOwned = errors.Define("bytebuffers: slot does not belong to pool")
)

// Slot
// 池中一段固定长度的内存，Index 为其在池中的下标。
type Slot struct {
	Index int
	Bytes []byte
}

// New
// 一次性分配 capacity*slotSize 字节（零值），切分为 capacity 个槽。
func New(capacity int, slotSize int) (*Pool, error) {
	if capacity <= 0 || slotSize <= 0 {
		return nil, errors.From(
			ErrInvalidSize,
			errors.WithMeta("capacity", strconv.Itoa(capacity)),
			errors.WithMeta("slotSize", strconv.Itoa(slotSize)),
		)
	}
	return &Pool{
		memory:   make([]byte, capacity*slotSize),
		inFlight: make([]bool, capacity),
		slotSize: slotSize,
	}, nil
}

// Pool
// 固定容量的槽池。Next 按轮转顺序跳过仍在使用的槽，不会把同一个槽同时交给两个操作。
// 不是并发安全的，由事件循环独占。
type Pool struct {
	memory   []byte
	inFlight []bool
	slotSize int
	cursor   int
	used     int
}

func (pool *Pool) Next() (Slot, error) {
	capacity := len(pool.inFlight)
	if pool.used == capacity {
		return Slot{Index: -1}, ErrExhausted
	}
	for i := 0; i < capacity; i++ {
		index := (pool.cursor + i) % capacity
		if pool.inFlight[index] {
			continue
		}
		pool.inFlight[index] = true
		pool.used++
		pool.cursor = (index + 1) % capacity
		return pool.slot(index), nil
	}
	return Slot{Index: -1}, ErrExhausted
}

func (pool *Pool) Release(slot Slot) error {
	if slot.Index < 0 || slot.Index >= len(pool.inFlight) {
		return ErrSlotNotOwned
	}
	if !pool.inFlight[slot.Index] {
		return ErrNotInFlight
	}
	pool.inFlight[slot.Index] = false
	pool.used--
	return nil
}

func (pool *Pool) InFlight() int {
	return pool.used
}

func (pool *Pool) Capacity() int {
	return len(pool.inFlight)
}

func (pool *Pool) SlotSize() int {
	return pool.slotSize
}

// Size
// 池占用的总字节数。
func (pool *Pool) Size() int {
	return len(pool.memory)
}

func (pool *Pool) slot(index int) Slot {
	offset := index * pool.slotSize
	return Slot{
		Index: index,
		Bytes: pool.memory[offset : offset+pool.slotSize : offset+pool.slotSize],
	}
}

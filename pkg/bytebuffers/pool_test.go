package bytebuffers_test

import (
	"testing"
	"unsafe"

	"github.com/brickingsoft/ringd/pkg/bytebuffers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	pool, err := bytebuffers.New(4, 16)
	require.NoError(t, err)
	assert.Equal(t, 4, pool.Capacity())
	assert.Equal(t, 16, pool.SlotSize())
	assert.Equal(t, 64, pool.Size())

	_, err = bytebuffers.New(0, 16)
	assert.Error(t, err)
	_, err = bytebuffers.New(4, -1)
	assert.Error(t, err)
}

func TestPool_RoundRobin(t *testing.T) {
	pool, _ := bytebuffers.New(3, 8)
	for round := 0; round < 2; round++ {
		for i := 0; i < 3; i++ {
			slot, err := pool.Next()
			require.NoError(t, err)
			assert.Equal(t, i, slot.Index)
			for _, b := range slot.Bytes {
				assert.Equal(t, byte(0), b)
			}
			require.NoError(t, pool.Release(slot))
		}
	}
}

func TestPool_SkipInFlight(t *testing.T) {
	pool, _ := bytebuffers.New(3, 8)
	s0, _ := pool.Next()
	s1, _ := pool.Next()
	s2, _ := pool.Next()
	require.NoError(t, pool.Release(s1))

	next, err := pool.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, next.Index)

	_, err = pool.Next()
	assert.ErrorIs(t, err, bytebuffers.ErrExhausted)
	assert.Equal(t, 3, pool.InFlight())

	require.NoError(t, pool.Release(s0))
	require.NoError(t, pool.Release(s2))
	assert.ErrorIs(t, pool.Release(s2), bytebuffers.ErrNotInFlight)
	assert.ErrorIs(t, pool.Release(bytebuffers.Slot{Index: 7}), bytebuffers.ErrSlotNotOwned)
}

// Slots handed out while others are in flight must never share memory.
func TestPool_Isolation(t *testing.T) {
	const capacity = 2048
	pool, _ := bytebuffers.New(capacity, 1024)

	slots := make([]bytebuffers.Slot, 0, capacity)
	for i := 0; i < capacity+1; i++ {
		slot, err := pool.Next()
		if i == capacity {
			assert.ErrorIs(t, err, bytebuffers.ErrExhausted)
			break
		}
		require.NoError(t, err)
		slots = append(slots, slot)
	}

	type span struct{ lo, hi uintptr }
	spans := make(map[int]span, len(slots))
	for _, s := range slots {
		lo := uintptr(unsafe.Pointer(unsafe.SliceData(s.Bytes)))
		spans[s.Index] = span{lo, lo + uintptr(len(s.Bytes))}
	}
	assert.Len(t, spans, capacity)
	prev := spans[0]
	for i := 1; i < capacity; i++ {
		cur := spans[i]
		assert.GreaterOrEqual(t, cur.lo, prev.hi, "slot %d overlaps slot %d", i, i-1)
		prev = cur
	}

	// writing one slot never reaches its neighbour
	slots[0].Bytes = append(slots[0].Bytes[:len(slots[0].Bytes)], 'x')
	assert.Equal(t, byte(0), slots[1].Bytes[0])
}

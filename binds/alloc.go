package binds

import (
	"sync/atomic"

	"github.com/reusee/slots/slotvm"
)

// AllocTracker counts vm allocations. Its Reallocate may be called from finalizer goroutines.
type AllocTracker struct {
	blocks atomic.Int64
	bytes  atomic.Int64
	total  atomic.Int64
}

func NewAllocTracker() *AllocTracker {
	return new(AllocTracker)
}

func (t *AllocTracker) Reallocate(memory []byte, newSize int) []byte {
	switch {
	case newSize == 0:
		if memory != nil {
			t.blocks.Add(-1)
			t.bytes.Add(-int64(len(memory)))
		}
		return nil
	case memory == nil:
		t.blocks.Add(1)
		t.total.Add(1)
		t.bytes.Add(int64(newSize))
	default:
		t.bytes.Add(int64(newSize - len(memory)))
	}
	return slotvm.DefaultReallocate(memory, newSize)
}

// LiveBlocks is the number of allocations not yet freed.
func (t *AllocTracker) LiveBlocks() int64 {
	return t.blocks.Load()
}

func (t *AllocTracker) LiveBytes() int64 {
	return t.bytes.Load()
}

func (t *AllocTracker) TotalAllocations() int64 {
	return t.total.Load()
}

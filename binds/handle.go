package binds

import (
	"runtime"
	"sync/atomic"

	"github.com/reusee/slots/slotvm"
)

type handleState uint8

const (
	handleBorrowed handleState = iota
	handleLeaked
	handleReleased
)

// Handle is a VM value pinned for the duration of the context that produced it.
// Leak converts it into an OwnedHandle that outlives the context.
type Handle struct {
	raw   *slotvm.Handle
	queue *releaseQueue
	state handleState
}

var _ Putter = new(Handle)

func newHandle(ctx *Context, raw *slotvm.Handle) *Handle {
	h := &Handle{
		raw:   raw,
		queue: ctx.userData.releases,
	}
	ctx.borrowed = append(ctx.borrowed, h)
	return h
}

func (h *Handle) PutSlot(ctx *Context, slot int) {
	if h.state == handleReleased {
		panic("use of released handle")
	}
	ctx.vm.SetSlotHandle(slot, h.raw)
}

func (h *Handle) SlotSize() int {
	return 1
}

// Leak transfers the release obligation to the returned OwnedHandle.
func (h *Handle) Leak() (*OwnedHandle, error) {
	if h.state != handleBorrowed {
		return nil, ErrAlreadyLeaked
	}
	h.state = handleLeaked
	return newOwnedHandle(h.raw, h.queue), nil
}

// Release queues the handle for release. It is a no-op after Leak.
func (h *Handle) Release() {
	if h.state != handleBorrowed {
		return
	}
	h.state = handleReleased
	h.queue.push(h.raw)
}

// OwnedHandle keeps a VM value alive until released.
// Unreachable owned handles are queued for release by a cleanup.
type OwnedHandle struct {
	raw      *slotvm.Handle
	queue    *releaseQueue
	cleanup  runtime.Cleanup
	released atomic.Bool
}

var _ Putter = new(OwnedHandle)

type pendingRelease struct {
	raw   *slotvm.Handle
	queue *releaseQueue
}

func newOwnedHandle(raw *slotvm.Handle, queue *releaseQueue) *OwnedHandle {
	h := &OwnedHandle{
		raw:   raw,
		queue: queue,
	}
	h.cleanup = runtime.AddCleanup(h, func(p pendingRelease) {
		p.queue.push(p.raw)
	}, pendingRelease{
		raw:   raw,
		queue: queue,
	})
	return h
}

func (h *OwnedHandle) PutSlot(ctx *Context, slot int) {
	if h.released.Load() {
		panic("use of released handle")
	}
	ctx.vm.SetSlotHandle(slot, h.raw)
}

func (h *OwnedHandle) SlotSize() int {
	return 1
}

// Release queues the handle for release. Safe to call from any goroutine, and more than once.
func (h *OwnedHandle) Release() {
	if h.released.Swap(true) {
		return
	}
	h.cleanup.Stop()
	h.queue.push(h.raw)
}

package binds

import (
	"reflect"
)

// List is a handle to a VM list.
// Values written through it must occupy a single slot.
type List struct {
	handle *Handle
}

var _ Putter = new(List)

func NewList(ctx *Context) *List {
	slot, done := ctx.scratch(1, 0)
	defer done()
	ctx.vm.SetSlotNewList(slot)
	return &List{
		handle: newHandle(ctx, ctx.vm.GetSlotHandle(slot)),
	}
}

func (l *List) Handle() *Handle {
	return l.handle
}

func (l *List) PutSlot(ctx *Context, slot int) {
	l.handle.PutSlot(ctx, slot)
}

func (l *List) SlotSize() int {
	return 1
}

// load puts the list into a scratch slot followed by extra free slots.
func (l *List) load(ctx *Context, extra int) (int, func()) {
	slot, done := ctx.scratch(1+extra, 0)
	l.handle.PutSlot(ctx, slot)
	return slot, done
}

func (l *List) Len(ctx *Context) int {
	slot, done := l.load(ctx, 0)
	defer done()
	return ctx.vm.GetListCount(slot)
}

func (l *List) IsEmpty(ctx *Context) bool {
	return l.Len(ctx) == 0
}

func (l *List) Push(ctx *Context, value any) error {
	slot, done := l.load(ctx, 1)
	defer done()
	ctx.put(slot+1, value)
	return ctx.vm.InsertInList(slot, -1, slot+1)
}

// Insert places value before index. index may equal the length.
func (l *List) Insert(ctx *Context, index int, value any) error {
	slot, done := l.load(ctx, 1)
	defer done()
	if n := ctx.vm.GetListCount(slot); index < 0 || index > n {
		return &IndexOutOfBoundsError{
			Index: index,
			Len:   n,
		}
	}
	ctx.put(slot+1, value)
	return ctx.vm.InsertInList(slot, index, slot+1)
}

func (l *List) Set(ctx *Context, index int, value any) error {
	slot, done := l.load(ctx, 1)
	defer done()
	if n := ctx.vm.GetListCount(slot); index < 0 || index >= n {
		return &IndexOutOfBoundsError{
			Index: index,
			Len:   n,
		}
	}
	ctx.put(slot+1, value)
	return ctx.vm.SetListElement(slot, index, slot+1)
}

// ListGet reads element index. ok is false when index is out of range.
func ListGet[T any](ctx *Context, l *List, index int) (value T, ok bool, err error) {
	slot, done := l.load(ctx, 1)
	defer done()
	if index < 0 || index >= ctx.vm.GetListCount(slot) {
		return value, false, nil
	}
	ctx.vm.GetListElement(slot, index, slot+1)
	value, err = Get[T](ctx, slot+1)
	return value, true, err
}

// ListToSlice reads every element, stopping at the first failure.
func ListToSlice[T any](ctx *Context, l *List) ([]T, error) {
	slot, done := l.load(ctx, 0)
	defer done()
	var out []T
	if err := ctx.getInto(slot, reflect.ValueOf(&out).Elem()); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCloneTo reads up to len(dst) elements into dst and returns the number read.
func ListCloneTo[T any](ctx *Context, l *List, dst []T) (int, error) {
	slot, done := l.load(ctx, 0)
	defer done()
	n := min(ctx.vm.GetListCount(slot), len(dst))
	if err := ctx.copyList(slot, reflect.ValueOf(dst)); err != nil {
		return 0, err
	}
	return n, nil
}

package binds

// Map is a handle to a VM map.
type Map struct {
	handle *Handle
}

var _ Putter = new(Map)

func NewMap(ctx *Context) *Map {
	slot, done := ctx.scratch(1, 0)
	defer done()
	ctx.vm.SetSlotNewMap(slot)
	return &Map{
		handle: newHandle(ctx, ctx.vm.GetSlotHandle(slot)),
	}
}

func (m *Map) Handle() *Handle {
	return m.handle
}

func (m *Map) PutSlot(ctx *Context, slot int) {
	m.handle.PutSlot(ctx, slot)
}

func (m *Map) SlotSize() int {
	return 1
}

// load puts the map, then key, into scratch slots followed by extra free slots.
func (m *Map) load(ctx *Context, key any, extra int) (int, func()) {
	slot, done := ctx.scratch(2+extra, 0)
	m.handle.PutSlot(ctx, slot)
	ctx.put(slot+1, key)
	return slot, done
}

func (m *Map) Len(ctx *Context) int {
	slot, done := m.load(ctx, nil, 0)
	defer done()
	return ctx.vm.GetMapCount(slot)
}

func (m *Map) Contains(ctx *Context, key any) bool {
	slot, done := m.load(ctx, key, 0)
	defer done()
	return ctx.vm.GetMapContainsKey(slot, slot+1)
}

func (m *Map) Set(ctx *Context, key any, value any) error {
	slot, done := m.load(ctx, key, 1)
	defer done()
	ctx.put(slot+2, value)
	return ctx.vm.SetMapValue(slot, slot+1, slot+2)
}

func (m *Map) Remove(ctx *Context, key any) error {
	slot, done := m.load(ctx, key, 1)
	defer done()
	return ctx.vm.RemoveMapValue(slot, slot+1, slot+2)
}

// MapGet reads the value under key. ok is false when the key is absent.
func MapGet[T any](ctx *Context, m *Map, key any) (value T, ok bool, err error) {
	slot, done := m.load(ctx, key, 1)
	defer done()
	if !ctx.vm.GetMapContainsKey(slot, slot+1) {
		return value, false, nil
	}
	ctx.vm.GetMapValue(slot, slot+1, slot+2)
	value, err = Get[T](ctx, slot+2)
	return value, true, err
}

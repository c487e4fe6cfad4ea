package binds

import (
	"fmt"
	"reflect"
)

// Putter writes itself into SlotSize consecutive slots starting at slot.
type Putter interface {
	PutSlot(ctx *Context, slot int)
	SlotSize() int
}

// Tuple writes its elements into consecutive slots.
type Tuple []any

var _ Putter = Tuple{}

func (t Tuple) PutSlot(ctx *Context, slot int) {
	for _, value := range t {
		ctx.put(slot, value)
		slot += slotSize(value)
	}
}

func (t Tuple) SlotSize() int {
	return SizeHint(t...)
}

// SizeHint returns the number of slots needed to write values contiguously.
func SizeHint(values ...any) int {
	n := 0
	for _, value := range values {
		n += slotSize(value)
	}
	return n
}

func slotSize(value any) int {
	if putter, ok := value.(Putter); ok && !isNil(value) {
		return putter.SlotSize()
	}
	return 1
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Put writes value into slot, growing the slot frame as needed.
// Unsupported value types panic.
func (c *Context) Put(slot int, value any) {
	c.EnsureSlots(slot + slotSize(value))
	c.put(slot, value)
}

func (c *Context) put(slot int, value any) {
	switch value := value.(type) {

	case nil:
		c.vm.SetSlotNull(slot)

	case Putter:
		if isNil(value) {
			c.vm.SetSlotNull(slot)
			return
		}
		value.PutSlot(c, slot)

	case bool:
		c.vm.SetSlotBool(slot, value)

	case string:
		c.vm.SetSlotString(slot, value)

	case []byte:
		if value == nil {
			c.vm.SetSlotNull(slot)
			return
		}
		c.vm.SetSlotBytes(slot, value)

	case float64:
		c.vm.SetSlotDouble(slot, value)

	case int:
		c.vm.SetSlotDouble(slot, float64(value))

	default:
		c.putValue(slot, reflect.ValueOf(value))

	}
}

func (c *Context) putValue(slot int, value reflect.Value) {
	if binding, ok := c.userData.bindings.classOfType(value.Type()); ok {
		c.putForeign(slot, binding, value)
		return
	}

	switch value.Kind() {

	case reflect.Bool:
		c.vm.SetSlotBool(slot, value.Bool())

	case reflect.String:
		c.vm.SetSlotString(slot, value.String())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		c.vm.SetSlotDouble(slot, float64(value.Int()))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		c.vm.SetSlotDouble(slot, float64(value.Uint()))

	case reflect.Float32, reflect.Float64:
		c.vm.SetSlotDouble(slot, value.Float())

	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			c.vm.SetSlotNull(slot)
			return
		}
		c.put(slot, value.Elem().Interface())

	case reflect.Slice:
		if value.Type().Elem().Kind() == reflect.Uint8 {
			c.vm.SetSlotBytes(slot, value.Bytes())
			return
		}
		fallthrough
	case reflect.Array:
		c.vm.SetSlotNewList(slot)
		elem, done := c.scratch(1, slot+1)
		defer done()
		for i := range value.Len() {
			c.put(elem, value.Index(i).Interface())
			if err := c.vm.InsertInList(slot, -1, elem); err != nil {
				panic(err)
			}
		}

	case reflect.Map:
		c.vm.SetSlotNewMap(slot)
		base, done := c.scratch(2, slot+1)
		defer done()
		iter := value.MapRange()
		for iter.Next() {
			c.put(base, iter.Key().Interface())
			c.put(base+1, iter.Value().Interface())
			if err := c.vm.SetMapValue(slot, base, base+1); err != nil {
				panic(err)
			}
		}

	default:
		panic(fmt.Errorf("unsupported slot value type: %v", value.Type()))
	}
}

func (c *Context) putForeign(slot int, binding *classBinding, value reflect.Value) {
	classSlot, done := c.scratch(1, slot+1)
	defer done()
	if !c.vm.GetForeignClass(binding.key.Module, binding.key.Class, classSlot) {
		panic(&VariableNotFoundError{
			Module: binding.key.Module,
			Name:   binding.key.Class,
		})
	}
	block := c.vm.SetSlotNewForeign(slot, classSlot, binding.size)
	block.Data = binding.wrap(value)
}

// New creates a foreign instance of T's registered class holding value.
func New[T any](ctx *Context, value T) (*Handle, error) {
	typ := reflect.TypeFor[T]()
	binding, ok := ctx.userData.bindings.classOfType(typ)
	if !ok {
		return nil, &ClassNotFoundError{
			Type: typ,
		}
	}
	slot, done := ctx.scratch(1, 0)
	defer done()
	if !ctx.vm.GetForeignClass(binding.key.Module, binding.key.Class, slot) {
		return nil, &VariableNotFoundError{
			Module: binding.key.Module,
			Name:   binding.key.Class,
		}
	}
	ctx.putForeign(slot, binding, reflect.ValueOf(&value).Elem())
	return newHandle(ctx, ctx.vm.GetSlotHandle(slot)), nil
}

package binds

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/reusee/slots/slotvm"
)

// Getter reads itself from a slot.
type Getter interface {
	GetSlot(ctx *Context, slot int) error
}

var (
	getterType      = reflect.TypeFor[Getter]()
	handleType      = reflect.TypeFor[*Handle]()
	ownedHandleType = reflect.TypeFor[*OwnedHandle]()
	listType        = reflect.TypeFor[*List]()
	mapType         = reflect.TypeFor[*Map]()
)

// Get reads slot as T. Pointer targets are optional: null reads as nil.
func Get[T any](ctx *Context, slot int) (T, error) {
	var value T
	err := ctx.getInto(slot, reflect.ValueOf(&value).Elem())
	return value, err
}

// Arg reads a foreign method argument, wrapping failures in GetArgError.
func Arg[T any](ctx *Context, slot int) (T, error) {
	value, err := Get[T](ctx, slot)
	if err != nil {
		return value, &GetArgError{
			Slot:  slot,
			Cause: err,
		}
	}
	return value, nil
}

func (c *Context) getInto(slot int, target reflect.Value) error {
	if err := c.checkSlot(slot); err != nil {
		return err
	}
	typ := target.Type()

	if target.CanAddr() && reflect.PointerTo(typ).Implements(getterType) {
		return target.Addr().Interface().(Getter).GetSlot(c, slot)
	}

	switch typ {

	case handleType:
		target.Set(reflect.ValueOf(newHandle(c, c.vm.GetSlotHandle(slot))))
		return nil

	case ownedHandleType:
		target.Set(reflect.ValueOf(newOwnedHandle(c.vm.GetSlotHandle(slot), c.userData.releases)))
		return nil

	case listType:
		if err := c.expect(slot, slotvm.TypeList); err != nil {
			return err
		}
		target.Set(reflect.ValueOf(&List{
			handle: newHandle(c, c.vm.GetSlotHandle(slot)),
		}))
		return nil

	case mapType:
		if err := c.expect(slot, slotvm.TypeMap); err != nil {
			return err
		}
		target.Set(reflect.ValueOf(&Map{
			handle: newHandle(c, c.vm.GetSlotHandle(slot)),
		}))
		return nil

	}

	if typ.Implements(anyCellType) {
		return c.getCell(slot, target)
	}

	if binding, ok := c.userData.bindings.classOfType(typ); ok {
		if err := c.expect(slot, slotvm.TypeForeign); err != nil {
			return err
		}
		value, err := binding.read(c.vm.GetSlotForeign(slot))
		if err != nil {
			return err
		}
		target.Set(value)
		return nil
	}

	switch typ.Kind() {

	case reflect.Pointer:
		if c.vm.GetSlotType(slot) == slotvm.TypeNull {
			target.SetZero()
			return nil
		}
		elem := reflect.New(typ.Elem())
		if err := c.getInto(slot, elem.Elem()); err != nil {
			return err
		}
		target.Set(elem)
		return nil

	case reflect.Interface:
		if typ.NumMethod() > 0 {
			break
		}
		value, err := c.getAny(slot)
		if err != nil {
			return err
		}
		if value == nil {
			target.SetZero()
			return nil
		}
		target.Set(reflect.ValueOf(value))
		return nil

	case reflect.Bool:
		if err := c.expect(slot, slotvm.TypeBool); err != nil {
			return err
		}
		target.SetBool(c.vm.GetSlotBool(slot))
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if err := c.expect(slot, slotvm.TypeNum); err != nil {
			return err
		}
		target.SetInt(int64(c.vm.GetSlotDouble(slot)))
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if err := c.expect(slot, slotvm.TypeNum); err != nil {
			return err
		}
		target.SetUint(uint64(c.vm.GetSlotDouble(slot)))
		return nil

	case reflect.Float32, reflect.Float64:
		if err := c.expect(slot, slotvm.TypeNum); err != nil {
			return err
		}
		target.SetFloat(c.vm.GetSlotDouble(slot))
		return nil

	case reflect.String:
		if err := c.expect(slot, slotvm.TypeString); err != nil {
			return err
		}
		s := c.vm.GetSlotString(slot)
		if !utf8.ValidString(s) {
			return ErrUtf8
		}
		target.SetString(s)
		return nil

	case reflect.Slice:
		if typ.Elem().Kind() == reflect.Uint8 {
			if err := c.expect(slot, slotvm.TypeString); err != nil {
				return err
			}
			target.SetBytes(c.vm.GetSlotBytes(slot))
			return nil
		}
		if err := c.expect(slot, slotvm.TypeList); err != nil {
			return err
		}
		n := c.vm.GetListCount(slot)
		out := reflect.MakeSlice(typ, n, n)
		if err := c.copyList(slot, out); err != nil {
			return err
		}
		target.Set(out)
		return nil

	case reflect.Array:
		if err := c.expect(slot, slotvm.TypeList); err != nil {
			return err
		}
		out := reflect.New(typ).Elem()
		if err := c.copyList(slot, out); err != nil {
			return err
		}
		target.Set(out)
		return nil

	case reflect.Map:
		if err := c.expect(slot, slotvm.TypeMap); err != nil {
			return err
		}
		out, err := c.copyMap(slot, typ)
		if err != nil {
			return err
		}
		target.Set(out)
		return nil

	}

	return fmt.Errorf("unsupported slot target type: %v", typ)
}

// copyList reads min(list length, out length) elements into out, stopping at the first failure.
func (c *Context) copyList(slot int, out reflect.Value) error {
	n := min(c.vm.GetListCount(slot), out.Len())
	elem, done := c.scratch(1, slot+1)
	defer done()
	for i := range n {
		c.vm.GetListElement(slot, i, elem)
		if err := c.getInto(elem, out.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) copyMap(slot int, typ reflect.Type) (reflect.Value, error) {
	base, done := c.scratch(3, slot+1)
	defer done()
	keys, keySlot, valueSlot := base, base+1, base+2
	c.vm.GetMapKeys(slot, keys)
	n := c.vm.GetListCount(keys)
	out := reflect.MakeMapWithSize(typ, n)
	for i := range n {
		c.vm.GetListElement(keys, i, keySlot)
		key := reflect.New(typ.Key()).Elem()
		if err := c.getInto(keySlot, key); err != nil {
			return out, err
		}
		c.vm.GetMapValue(slot, keySlot, valueSlot)
		value := reflect.New(typ.Elem()).Elem()
		if err := c.getInto(valueSlot, value); err != nil {
			return out, err
		}
		out.SetMapIndex(key, value)
	}
	return out, nil
}

func (c *Context) getCell(slot int, target reflect.Value) error {
	if err := c.expect(slot, slotvm.TypeForeign); err != nil {
		return err
	}
	block := c.vm.GetSlotForeign(slot)
	if block == nil || block.Data == nil {
		return ErrNullPtr
	}
	want := reflect.Zero(target.Type()).Interface().(anyCell).staticTag()
	data, ok := block.Data.(anyCell)
	if !ok {
		return ErrForeignType
	}
	if data.isNil() {
		return ErrNullPtr
	}
	if data.cellTag() != want {
		return ErrForeignType
	}
	target.Set(reflect.ValueOf(block.Data))
	return nil
}

func (c *Context) getAny(slot int) (any, error) {
	switch c.vm.GetSlotType(slot) {

	case slotvm.TypeNull:
		return nil, nil

	case slotvm.TypeBool:
		return c.vm.GetSlotBool(slot), nil

	case slotvm.TypeNum:
		return c.vm.GetSlotDouble(slot), nil

	case slotvm.TypeString:
		s := c.vm.GetSlotString(slot)
		if !utf8.ValidString(s) {
			return nil, ErrUtf8
		}
		return s, nil

	case slotvm.TypeList:
		var out []any
		err := c.getInto(slot, reflect.ValueOf(&out).Elem())
		return out, err

	case slotvm.TypeMap:
		var out map[string]any
		err := c.getInto(slot, reflect.ValueOf(&out).Elem())
		return out, err

	case slotvm.TypeForeign:
		block := c.vm.GetSlotForeign(slot)
		if block == nil {
			return nil, ErrNullPtr
		}
		return block.Data, nil

	}

	return newHandle(c, c.vm.GetSlotHandle(slot)), nil
}

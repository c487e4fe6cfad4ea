package slotvm

import (
	"math"

	"go.starlark.net/starlark"
)

const maxExactInt = 1 << 53

func (v *VM) GetSlotCount() int {
	return len(v.slots)
}

func (v *VM) EnsureSlots(n int) {
	for len(v.slots) < n {
		v.slots = append(v.slots, starlark.None)
	}
}

func (v *VM) GetSlotType(slot int) Type {
	return typeOf(v.slots[slot])
}

func typeOf(value starlark.Value) Type {
	switch value.(type) {
	case starlark.NoneType:
		return TypeNull
	case starlark.Bool:
		return TypeBool
	case starlark.Int, starlark.Float:
		return TypeNum
	case starlark.String, starlark.Bytes:
		return TypeString
	case *starlark.List, starlark.Tuple:
		return TypeList
	case *starlark.Dict:
		return TypeMap
	case *ForeignObject:
		return TypeForeign
	}
	return TypeUnknown
}

func (v *VM) GetSlotBool(slot int) bool {
	b, _ := v.slots[slot].(starlark.Bool)
	return bool(b)
}

func (v *VM) SetSlotBool(slot int, value bool) {
	v.slots[slot] = starlark.Bool(value)
}

func (v *VM) GetSlotDouble(slot int) float64 {
	f, _ := starlark.AsFloat(v.slots[slot])
	return f
}

func (v *VM) SetSlotDouble(slot int, value float64) {
	v.slots[slot] = numberValue(value)
}

// numberValue keeps integral doubles as ints so scripts can index and range with them.
func numberValue(f float64) starlark.Value {
	if f == math.Trunc(f) &&
		math.Abs(f) <= maxExactInt &&
		!(f == 0 && math.Signbit(f)) {
		return starlark.MakeInt64(int64(f))
	}
	return starlark.Float(f)
}

func (v *VM) GetSlotString(slot int) string {
	switch s := v.slots[slot].(type) {
	case starlark.String:
		return string(s)
	case starlark.Bytes:
		return string(s)
	}
	return ""
}

func (v *VM) GetSlotBytes(slot int) []byte {
	return []byte(v.GetSlotString(slot))
}

func (v *VM) SetSlotString(slot int, value string) {
	v.slots[slot] = starlark.String(value)
}

// SetSlotBytes stores raw bytes as a string value; the bytes need not be UTF-8.
func (v *VM) SetSlotBytes(slot int, value []byte) {
	v.slots[slot] = starlark.String(value)
}

func (v *VM) SetSlotNull(slot int) {
	v.slots[slot] = starlark.None
}

func (v *VM) SetSlotNewList(slot int) {
	v.slots[slot] = starlark.NewList(nil)
}

func (v *VM) SetSlotNewMap(slot int) {
	v.slots[slot] = starlark.NewDict(0)
}

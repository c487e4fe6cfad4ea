package slotvm

import (
	"go.starlark.net/starlark"
)

func (v *VM) GetMapCount(mapSlot int) int {
	return v.slots[mapSlot].(*starlark.Dict).Len()
}

func (v *VM) GetMapContainsKey(mapSlot int, keySlot int) bool {
	_, found, err := v.slots[mapSlot].(*starlark.Dict).Get(v.slots[keySlot])
	return err == nil && found
}

// GetMapValue stores null in valueSlot when the key is absent.
func (v *VM) GetMapValue(mapSlot int, keySlot int, valueSlot int) {
	value, found, err := v.slots[mapSlot].(*starlark.Dict).Get(v.slots[keySlot])
	if err != nil || !found {
		value = starlark.None
	}
	v.slots[valueSlot] = value
}

func (v *VM) SetMapValue(mapSlot int, keySlot int, valueSlot int) error {
	return v.slots[mapSlot].(*starlark.Dict).SetKey(v.slots[keySlot], v.slots[valueSlot])
}

func (v *VM) RemoveMapValue(mapSlot int, keySlot int, removedSlot int) error {
	removed, found, err := v.slots[mapSlot].(*starlark.Dict).Delete(v.slots[keySlot])
	if err != nil {
		return err
	}
	if !found {
		removed = starlark.None
	}
	v.slots[removedSlot] = removed
	return nil
}

// GetMapKeys stores a new list of the map's keys in listSlot.
func (v *VM) GetMapKeys(mapSlot int, listSlot int) {
	keys := v.slots[mapSlot].(*starlark.Dict).Keys()
	v.slots[listSlot] = starlark.NewList(keys)
}

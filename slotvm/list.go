package slotvm

import (
	"fmt"

	"go.starlark.net/starlark"
)

// list operations do not check bounds; callers must.

func (v *VM) GetListCount(listSlot int) int {
	return v.slots[listSlot].(starlark.Indexable).Len()
}

func (v *VM) GetListElement(listSlot int, index int, elementSlot int) {
	list := v.slots[listSlot].(starlark.Indexable)
	if index < 0 {
		index += list.Len()
	}
	v.slots[elementSlot] = list.Index(index)
}

func (v *VM) SetListElement(listSlot int, index int, elementSlot int) error {
	list, ok := v.slots[listSlot].(*starlark.List)
	if !ok {
		return fmt.Errorf("cannot assign to element of %s", v.slots[listSlot].Type())
	}
	if index < 0 {
		index += list.Len()
	}
	return list.SetIndex(index, v.slots[elementSlot])
}

// InsertInList inserts before index; -1 appends.
func (v *VM) InsertInList(listSlot int, index int, elementSlot int) error {
	list, ok := v.slots[listSlot].(*starlark.List)
	if !ok {
		return fmt.Errorf("cannot insert into %s", v.slots[listSlot].Type())
	}
	n := list.Len()
	if index < 0 {
		index += n + 1
	}
	element := v.slots[elementSlot]
	if index == n {
		return list.Append(element)
	}
	if err := list.Append(list.Index(n - 1)); err != nil {
		return err
	}
	for i := n - 1; i > index; i-- {
		if err := list.SetIndex(i, list.Index(i-1)); err != nil {
			return err
		}
	}
	return list.SetIndex(index, element)
}

package slotvm

import (
	"go.starlark.net/starlark"
)

// HandleSize is the number of bytes accounted through Reallocate for each handle.
const HandleSize = 32

// Handle pins a value against collection until released.
type Handle struct {
	value     starlark.Value
	signature *Signature
	memory    []byte
	released  bool
}

// Signature is set for handles made by MakeCallHandle.
func (h *Handle) Signature() *Signature {
	return h.signature
}

func (v *VM) newHandle(value starlark.Value, sig *Signature) *Handle {
	h := &Handle{
		value:     value,
		signature: sig,
		memory:    v.reallocate(nil, HandleSize),
	}
	v.handles[h] = struct{}{}
	return h
}

func (v *VM) GetSlotHandle(slot int) *Handle {
	return v.newHandle(v.slots[slot], nil)
}

func (v *VM) SetSlotHandle(slot int, h *Handle) {
	if h.released {
		panic("use of released handle")
	}
	v.slots[slot] = h.value
}

func (v *VM) MakeCallHandle(signature string) (*Handle, error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	return v.newHandle(starlark.None, sig), nil
}

func (v *VM) ReleaseHandle(h *Handle) {
	if h.released {
		panic("handle released twice")
	}
	h.released = true
	delete(v.handles, h)
	v.reallocate(h.memory, 0)
	h.memory = nil
	h.value = nil
}

func (v *VM) LiveHandles() int {
	return len(v.handles)
}

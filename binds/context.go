package binds

import (
	"log/slog"

	"github.com/reusee/slots/slotvm"
)

// Context is a scope of VM access. Handles obtained through it are released when the scope ends
// unless leaked.
type Context struct {
	vm       *slotvm.VM
	userData *UserData
	borrowed []*Handle

	// slots below pinned belong to the caller
	pinned int
	// next free scratch slot
	top int
}

func newContext(vm *slotvm.VM, userData *UserData) *Context {
	return &Context{
		vm:       vm,
		userData: userData,
		pinned:   vm.GetSlotCount(),
	}
}

func (c *Context) end() {
	for _, h := range c.borrowed {
		h.Release()
	}
	c.borrowed = nil
}

func (c *Context) Logger() *slog.Logger {
	return c.userData.logger
}

func (c *Context) SlotCount() int {
	return c.vm.GetSlotCount()
}

// EnsureSlots grows the slot frame to at least n slots and reserves them for the caller.
func (c *Context) EnsureSlots(n int) {
	c.vm.EnsureSlots(n)
	c.pinned = max(c.pinned, n)
}

func (c *Context) SlotType(slot int) (slotvm.Type, error) {
	if err := c.checkSlot(slot); err != nil {
		return slotvm.TypeUnknown, err
	}
	return c.vm.GetSlotType(slot), nil
}

func (c *Context) checkSlot(slot int) error {
	if count := c.vm.GetSlotCount(); slot < 0 || slot >= count {
		return &SlotOutOfBoundsError{
			Slot:  slot,
			Count: count,
		}
	}
	return nil
}

func (c *Context) expect(slot int, expected slotvm.Type) error {
	if err := c.checkSlot(slot); err != nil {
		return err
	}
	if actual := c.vm.GetSlotType(slot); actual != expected {
		return &SlotTypeError{
			Slot:     slot,
			Expected: expected,
			Actual:   actual,
		}
	}
	return nil
}

// scratch reserves n slots above every caller slot, every live scratch slot and above.
// The returned func gives them back.
func (c *Context) scratch(n int, above int) (int, func()) {
	base := max(c.top, c.pinned, above)
	c.vm.EnsureSlots(base + n)
	prev := c.top
	c.top = base + n
	return base, func() {
		c.top = prev
	}
}

func (c *Context) HasModule(module string) bool {
	return c.vm.HasModule(module)
}

func (c *Context) HasVar(module string, name string) bool {
	return c.vm.HasVariable(module, name)
}

// Var returns a handle to a top-level variable.
func (c *Context) Var(module string, name string) (*Handle, error) {
	if !c.vm.HasModule(module) {
		return nil, &ModuleNotFoundError{
			Module: module,
		}
	}
	if !c.vm.HasVariable(module, name) {
		return nil, &VariableNotFoundError{
			Module: module,
			Name:   name,
		}
	}
	slot, done := c.scratch(1, 0)
	defer done()
	c.vm.GetVariable(module, name, slot)
	return newHandle(c, c.vm.GetSlotHandle(slot)), nil
}

// CallRef looks up a variable and compiles signature against it.
func (c *Context) CallRef(module string, variable string, signature string) (*CallRef, error) {
	receiver, err := c.Var(module, variable)
	if err != nil {
		return nil, err
	}
	fn, err := CompileFnSymbol(c, signature)
	if err != nil {
		receiver.Release()
		return nil, err
	}
	return NewCallRef(receiver, fn), nil
}

// CollectGarbage runs a collection. Foreign values that became unreachable are finalized
// asynchronously.
func (c *Context) CollectGarbage() {
	c.vm.CollectGarbage()
}

// GetVar reads a top-level variable as T.
func GetVar[T any](ctx *Context, module string, name string) (ret T, err error) {
	if !ctx.vm.HasModule(module) {
		return ret, &ModuleNotFoundError{
			Module: module,
		}
	}
	if !ctx.vm.HasVariable(module, name) {
		return ret, &VariableNotFoundError{
			Module: module,
			Name:   name,
		}
	}
	slot, done := ctx.scratch(1, 0)
	defer done()
	ctx.vm.GetVariable(module, name, slot)
	return Get[T](ctx, slot)
}

package binds

import (
	"github.com/reusee/slots/slotvm"
)

func userDataOf(vm *slotvm.VM) (*UserData, error) {
	userData, ok := vm.UserData().(*UserData)
	if !ok || userData == nil {
		return nil, ErrUserDataNull
	}
	return userData, nil
}

// runForeign runs body as the implementation of a foreign call.
// A failing body aborts the running script with its error.
func runForeign(vm *slotvm.VM, module string, function string, body func(ctx *Context) error) {
	userData, err := userDataOf(vm)
	if err != nil {
		vm.EnsureSlots(1)
		vm.SetSlotString(0, err.Error())
		vm.AbortFiber(0)
		return
	}
	ctx := newContext(vm, userData)
	defer ctx.end()
	if err := body(ctx); err != nil {
		ctx.fail(module, function, err)
	}
}

func (c *Context) fail(module string, function string, err error) {
	if _, ok := err.(*ForeignCallError); !ok {
		err = &ForeignCallError{
			Function: function,
			Cause:    err,
		}
	}

	frame := errorEvent{
		kind:    eventForeignFrame,
		module:  module,
		message: function,
	}
	if annotated, ok := asForeignError(err); ok {
		frame.module = annotated.Module
		frame.line = annotated.Line
	}
	c.userData.errors.push(frame)
	c.userData.errors.push(errorEvent{
		kind:    eventForeign,
		message: err.Error(),
		err:     err,
	})

	c.vm.EnsureSlots(1)
	c.vm.SetSlotString(0, err.Error())
	c.vm.AbortFiber(0)
}

// asForeignError looks for an annotation without crossing into nested runtime errors.
func asForeignError(err error) (*ForeignError, bool) {
	for err != nil {
		switch e := err.(type) {
		case *ForeignError:
			return e, true
		case *RuntimeError:
			return nil, false
		case interface{ Unwrap() error }:
			err = e.Unwrap()
		default:
			return nil, false
		}
	}
	return nil, false
}

func (c *Context) setResult(value any) {
	c.vm.EnsureSlots(1)
	c.put(0, value)
}

func borrowReceiver[T any](ctx *Context, mutable bool) (*T, func(), error) {
	cell, err := Arg[*Cell[T]](ctx, 0)
	if err != nil {
		return nil, nil, err
	}
	if mutable {
		ref, err := cell.TryBorrowMut()
		if err != nil {
			return nil, nil, err
		}
		return ref.Value(), ref.Release, nil
	}
	ref, err := cell.TryBorrow()
	if err != nil {
		return nil, nil, err
	}
	return ref.Value(), ref.Release, nil
}

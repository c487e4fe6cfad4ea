package binds

import (
	"github.com/reusee/slots/slotvm"
)

// FnSymbol is a compiled method signature such as "add(_,_)".
type FnSymbol struct {
	handle *Handle
}

func CompileFnSymbol(ctx *Context, signature string) (*FnSymbol, error) {
	raw, err := ctx.vm.MakeCallHandle(signature)
	if err != nil {
		return nil, &InvalidSignatureError{
			Signature: signature,
			Cause:     err,
		}
	}
	return &FnSymbol{
		handle: newHandle(ctx, raw),
	}, nil
}

func (f *FnSymbol) Signature() string {
	return f.handle.raw.Signature().Text
}

func (f *FnSymbol) Leak() (*OwnedFnSymbol, error) {
	owned, err := f.handle.Leak()
	if err != nil {
		return nil, err
	}
	return &OwnedFnSymbol{
		handle: owned,
	}, nil
}

func (f *FnSymbol) Release() {
	f.handle.Release()
}

type OwnedFnSymbol struct {
	handle *OwnedHandle
}

func (f *OwnedFnSymbol) Signature() string {
	return f.handle.raw.Signature().Text
}

func (f *OwnedFnSymbol) Release() {
	f.handle.Release()
}

// Caller is implemented by CallRef and OwnedCallRef.
type Caller interface {
	callParts() (receiver *slotvm.Handle, fn *slotvm.Handle, ok bool)
}

// CallRef pairs a receiver with a method, both scoped to a context.
type CallRef struct {
	receiver *Handle
	fn       *FnSymbol
}

var _ Caller = new(CallRef)

func NewCallRef(receiver *Handle, fn *FnSymbol) *CallRef {
	return &CallRef{
		receiver: receiver,
		fn:       fn,
	}
}

func (c *CallRef) callParts() (*slotvm.Handle, *slotvm.Handle, bool) {
	if c.receiver == nil || c.fn == nil ||
		c.receiver.state == handleReleased || c.fn.handle.state == handleReleased {
		return nil, nil, false
	}
	return c.receiver.raw, c.fn.handle.raw, true
}

// Leak converts both parts. Nothing is leaked when either part already was.
func (c *CallRef) Leak() (*OwnedCallRef, error) {
	if c.receiver.state != handleBorrowed || c.fn.handle.state != handleBorrowed {
		return nil, ErrAlreadyLeaked
	}
	receiver, err := c.receiver.Leak()
	if err != nil {
		return nil, err
	}
	fn, err := c.fn.Leak()
	if err != nil {
		receiver.Release()
		return nil, err
	}
	return NewOwnedCallRef(receiver, fn), nil
}

func (c *CallRef) Release() {
	c.receiver.Release()
	c.fn.Release()
}

func (c *CallRef) Exec(ctx *Context, args ...any) error {
	return call(ctx, c, args)
}

// OwnedCallRef is a CallRef that outlives contexts.
type OwnedCallRef struct {
	receiver *OwnedHandle
	fn       *OwnedFnSymbol
}

var _ Caller = new(OwnedCallRef)

func NewOwnedCallRef(receiver *OwnedHandle, fn *OwnedFnSymbol) *OwnedCallRef {
	return &OwnedCallRef{
		receiver: receiver,
		fn:       fn,
	}
}

func (c *OwnedCallRef) callParts() (*slotvm.Handle, *slotvm.Handle, bool) {
	if c.receiver == nil || c.fn == nil ||
		c.receiver.released.Load() || c.fn.handle.released.Load() {
		return nil, nil, false
	}
	return c.receiver.raw, c.fn.handle.raw, true
}

func (c *OwnedCallRef) Release() {
	c.receiver.Release()
	c.fn.Release()
}

func (c *OwnedCallRef) Exec(ctx *Context, args ...any) error {
	return call(ctx, c, args)
}

// Call invokes ref with args and reads the result as R.
func Call[R any](ctx *Context, ref Caller, args ...any) (ret R, err error) {
	if err := call(ctx, ref, args); err != nil {
		return ret, err
	}
	return Get[R](ctx, 0)
}

func call(ctx *Context, ref Caller, args []any) error {
	receiver, fn, ok := ref.callParts()
	if !ok {
		return ErrNullPtr
	}
	size := SizeHint(args...)
	if sig := fn.Signature(); sig != nil && sig.Arity != size {
		return &ArityError{
			Signature: sig.Text,
			Want:      sig.Arity,
			Got:       size,
		}
	}

	ctx.EnsureSlots(1 + size)
	ctx.vm.SetSlotHandle(0, receiver)
	slot := 1
	for _, arg := range args {
		ctx.put(slot, arg)
		slot += slotSize(arg)
	}

	result := ctx.vm.Call(fn)
	ctx.pinned = ctx.vm.GetSlotCount()
	return collectErrors(&ctx.userData.errors, result, ctx.userData.logger)
}

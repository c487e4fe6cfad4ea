package binds

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/reusee/slots/slotvm"
)

// ModuleBuilder registers the foreign classes of one script module.
type ModuleBuilder struct {
	name     string
	bindings *Bindings
	logger   *slog.Logger
}

func (m *ModuleBuilder) Name() string {
	return m.name
}

// Class registers the foreign methods of a class backed by host type T.
type Class[T any] struct {
	module    *ModuleBuilder
	key       ClassKey
	construct func(ctx *Context) (T, error)
}

// Register binds className in m's module to host type T.
// Scripts declare the class with foreign_class("className").
func Register[T any](m *ModuleBuilder, className string) *Class[T] {
	class := &Class[T]{
		module: m,
		key: ClassKey{
			Module: m.name,
			Class:  className,
		},
	}
	m.bindings.addClass(&classBinding{
		key:      class.key,
		typ:      reflect.TypeFor[T](),
		size:     cellSize[T](),
		allocate: class.allocate,
		finalize: class.finalize,
		wrap: func(v reflect.Value) any {
			var value T
			reflect.ValueOf(&value).Elem().Set(v)
			return NewCell(value)
		},
		read: func(block *slotvm.ForeignBlock) (reflect.Value, error) {
			cell, err := CellFromBlock[T](block)
			if err != nil {
				return reflect.Value{}, err
			}
			ref, err := cell.TryBorrow()
			if err != nil {
				return reflect.Value{}, err
			}
			defer ref.Release()
			value := *ref.Value()
			return reflect.ValueOf(&value).Elem(), nil
		},
	})
	return class
}

// Construct sets the constructor called when scripts call the class.
// Arguments start at slot 1.
func (c *Class[T]) Construct(fn func(ctx *Context) (T, error)) *Class[T] {
	c.construct = fn
	return c
}

func (c *Class[T]) allocate(vm *slotvm.VM) {
	runForeign(vm, c.key.Module, c.key.Class+".new", func(ctx *Context) error {
		if c.construct == nil {
			return fmt.Errorf("class %s has no constructor", c.key.Class)
		}
		// the constructor may call back into the vm and clobber slot 0
		class := newHandle(ctx, vm.GetSlotHandle(0))

		value, err := c.construct(ctx)
		if err != nil {
			return err
		}

		vm.EnsureSlots(1)
		class.PutSlot(ctx, 0)
		block := vm.SetSlotNewForeign(0, 0, cellSize[T]())
		block.Data = NewCell(value)
		return nil
	})
}

// finalize runs on a cleanup goroutine and must not touch the vm.
func (c *Class[T]) finalize(data any) {
	cell, err := cellFrom[T](data)
	if err != nil {
		// never constructed
		return
	}
	value, ok := cell.take()
	if !ok {
		return
	}
	if err := closeValue(&value); err != nil {
		c.module.logger.Error("close foreign value",
			"module", c.key.Module,
			"class", c.key.Class,
			"error", err,
		)
	}
}

func (c *Class[T]) methodKey(signature string, isStatic bool) MethodKey {
	return MethodKey{
		Module:    c.key.Module,
		Class:     c.key.Class,
		Signature: signature,
		IsStatic:  isStatic,
	}
}

func (c *Class[T]) function(signature string) string {
	return c.key.Class + "." + signature
}

func mustParseSignature(signature string) *slotvm.Signature {
	sig, err := slotvm.ParseSignature(signature)
	if err != nil {
		panic(&InvalidSignatureError{
			Signature: signature,
			Cause:     err,
		})
	}
	return sig
}

// Method binds an instance method that reads the receiver.
func (c *Class[T]) Method(signature string, fn func(ctx *Context, self *T) (any, error)) *Class[T] {
	return c.instance(signature, false, fn)
}

// MethodMut binds an instance method that holds an exclusive borrow of the receiver.
func (c *Class[T]) MethodMut(signature string, fn func(ctx *Context, self *T) (any, error)) *Class[T] {
	return c.instance(signature, true, fn)
}

func (c *Class[T]) instance(signature string, mutable bool, fn func(ctx *Context, self *T) (any, error)) *Class[T] {
	mustParseSignature(signature)
	function := c.function(signature)
	c.module.bindings.addMethod(c.methodKey(signature, false), func(vm *slotvm.VM) {
		runForeign(vm, c.key.Module, function, func(ctx *Context) error {
			self, release, err := borrowReceiver[T](ctx, mutable)
			if err != nil {
				return err
			}
			defer release()
			result, err := fn(ctx, self)
			if err != nil {
				return err
			}
			ctx.setResult(result)
			return nil
		})
	})
	return c
}

// Static binds a method called on the class itself.
func (c *Class[T]) Static(signature string, fn func(ctx *Context) (any, error)) *Class[T] {
	mustParseSignature(signature)
	function := c.function(signature)
	c.module.bindings.addMethod(c.methodKey(signature, true), func(vm *slotvm.VM) {
		runForeign(vm, c.key.Module, function, func(ctx *Context) error {
			result, err := fn(ctx)
			if err != nil {
				return err
			}
			ctx.setResult(result)
			return nil
		})
	})
	return c
}

// Getter binds a property read.
func (c *Class[T]) Getter(name string, fn func(self *T) any) *Class[T] {
	if sig := mustParseSignature(name); sig.Kind != slotvm.SigGetter {
		panic(fmt.Errorf("%s is not a getter signature", name))
	}
	return c.instance(name, false, func(_ *Context, self *T) (any, error) {
		return fn(self), nil
	})
}

// Setter binds a property write. The new value is in slot 1.
func (c *Class[T]) Setter(name string, fn func(ctx *Context, self *T) error) *Class[T] {
	signature := name + "=(_)"
	if sig := mustParseSignature(signature); sig.Kind != slotvm.SigSetter {
		panic(fmt.Errorf("%s is not a setter signature", signature))
	}
	return c.instance(signature, true, func(ctx *Context, self *T) (any, error) {
		return nil, fn(ctx, self)
	})
}

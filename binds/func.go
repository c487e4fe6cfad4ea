package binds

import (
	"fmt"
	"reflect"

	"github.com/reusee/slots/slotvm"
)

var (
	errorType   = reflect.TypeFor[error]()
	contextType = reflect.TypeFor[*Context]()
)

type goFunc struct {
	fnValue    reflect.Value
	fnType     reflect.Type
	wantsCtx   bool
	isStatic   bool
	params     []reflect.Type
	errorIndex int
}

func newGoFunc[T any](signature string, fn any) *goFunc {
	sig := mustParseSignature(signature)
	g := &goFunc{
		fnValue:    reflect.ValueOf(fn),
		isStatic:   true,
		errorIndex: -1,
	}
	if g.fnValue.Kind() != reflect.Func {
		panic(fmt.Errorf("%s: not a function: %T", signature, fn))
	}
	g.fnType = g.fnValue.Type()
	if g.fnType.IsVariadic() {
		panic(fmt.Errorf("%s: variadic functions are not supported", signature))
	}

	i := 0
	if g.fnType.NumIn() > i && g.fnType.In(i) == contextType {
		g.wantsCtx = true
		i++
	}
	if g.fnType.NumIn() > i && g.fnType.In(i) == reflect.TypeFor[*T]() {
		g.isStatic = false
		i++
	}
	for ; i < g.fnType.NumIn(); i++ {
		g.params = append(g.params, g.fnType.In(i))
	}
	if len(g.params) != sig.Arity {
		panic(fmt.Errorf("%s: function takes %d arguments", signature, len(g.params)))
	}

	switch numOut := g.fnType.NumOut(); numOut {
	case 0:
	case 1, 2:
		if last := g.fnType.Out(numOut - 1); last == errorType {
			g.errorIndex = numOut - 1
		} else if numOut == 2 {
			panic(fmt.Errorf("%s: second result must be an error", signature))
		}
	default:
		panic(fmt.Errorf("%s: too many results", signature))
	}

	return g
}

func (g *goFunc) call(ctx *Context, self reflect.Value) (any, error) {
	args := make([]reflect.Value, 0, g.fnType.NumIn())
	if g.wantsCtx {
		args = append(args, reflect.ValueOf(ctx))
	}
	if !g.isStatic {
		args = append(args, self)
	}
	for i, param := range g.params {
		slot := i + 1
		arg := reflect.New(param).Elem()
		if err := ctx.getInto(slot, arg); err != nil {
			return nil, &GetArgError{
				Slot:  slot,
				Cause: err,
			}
		}
		args = append(args, arg)
	}

	rets := g.fnValue.Call(args)
	if g.errorIndex >= 0 {
		if err, _ := rets[g.errorIndex].Interface().(error); err != nil {
			return nil, err
		}
		rets = rets[:g.errorIndex]
	}
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].Interface(), nil
}

// Func binds fn by reflection. fn may take a leading *Context, then *T for an
// instance method, then one parameter per signature argument, and may return
// a value, an error, or both. The receiver is borrowed shared, so fn must not
// mutate it; use FuncMut for that.
func (c *Class[T]) Func(signature string, fn any) *Class[T] {
	return c.reflected(signature, fn, false)
}

// FuncMut is Func with an exclusive borrow of the receiver.
func (c *Class[T]) FuncMut(signature string, fn any) *Class[T] {
	return c.reflected(signature, fn, true)
}

func (c *Class[T]) reflected(signature string, fn any, mutable bool) *Class[T] {
	g := newGoFunc[T](signature, fn)
	function := c.function(signature)
	c.module.bindings.addMethod(c.methodKey(signature, g.isStatic), func(vm *slotvm.VM) {
		runForeign(vm, c.key.Module, function, func(ctx *Context) error {
			var self reflect.Value
			if !g.isStatic {
				receiver, release, err := borrowReceiver[T](ctx, mutable)
				if err != nil {
					return err
				}
				defer release()
				self = reflect.ValueOf(receiver)
			}
			result, err := g.call(ctx, self)
			if err != nil {
				return err
			}
			ctx.setResult(result)
			return nil
		})
	})
	return c
}

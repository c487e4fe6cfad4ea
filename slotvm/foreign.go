package slotvm

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"go.starlark.net/starlark"
)

// ForeignBlock is the VM-owned storage of a foreign instance.
// Allocators store the host value in Data.
type ForeignBlock struct {
	Data any

	memory   []byte
	finalize FinalizerFn
	done     atomic.Bool
}

func (b *ForeignBlock) Size() int {
	return len(b.memory)
}

type classKey struct {
	module string
	name   string
}

type methodKey struct {
	signature string
	isStatic  bool
}

type ForeignClass struct {
	vm      *VM
	module  string
	name    string
	methods ForeignClassMethods
	bound   map[methodKey]ForeignMethodFn
}

var (
	_ starlark.Callable = new(ForeignClass)
	_ starlark.HasAttrs = new(ForeignClass)
)

func (c *ForeignClass) Name() string          { return c.name }
func (c *ForeignClass) String() string        { return "<class " + c.name + ">" }
func (c *ForeignClass) Type() string          { return "class" }
func (c *ForeignClass) Freeze()               {}
func (c *ForeignClass) Truth() starlark.Bool  { return starlark.True }
func (c *ForeignClass) Hash() (uint32, error) { return starlark.String(c.module + "." + c.name).Hash() }
func (c *ForeignClass) AttrNames() []string   { return nil }

// method binds lazily and caches misses as nil.
func (c *ForeignClass) method(signature string, isStatic bool) ForeignMethodFn {
	key := methodKey{
		signature: signature,
		isStatic:  isStatic,
	}
	if fn, ok := c.bound[key]; ok {
		return fn
	}
	var fn ForeignMethodFn
	if c.vm.config.BindForeignMethod != nil {
		fn = c.vm.config.BindForeignMethod(c.vm, c.module, c.name, isStatic, signature)
	}
	c.bound[key] = fn
	return fn
}

func (c *ForeignClass) CallInternal(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", c.name)
	}
	result, err := c.vm.callForeign(c.methods.Allocate, c, args)
	if err != nil {
		return nil, err
	}
	obj, ok := result.(*ForeignObject)
	if !ok || obj.class != c {
		return nil, fmt.Errorf("allocator of %s did not create an instance", c.name)
	}
	return obj, nil
}

func (c *ForeignClass) Attr(name string) (starlark.Value, error) {
	if getter := c.method(name, true); getter != nil {
		return c.vm.callForeign(getter, c, nil)
	}
	return c.dispatcher(name, true, c), nil
}

func (c *ForeignClass) dispatcher(name string, isStatic bool, receiver starlark.Value) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		sig := MethodSignature(name, len(args))
		fn := c.method(sig, isStatic)
		if fn == nil {
			return nil, fmt.Errorf("%s does not implement '%s'", c.name, sig)
		}
		return c.vm.callForeign(fn, receiver, args)
	})
}

type ForeignObject struct {
	class *ForeignClass
	block *ForeignBlock
}

var _ starlark.HasSetField = new(ForeignObject)

func (o *ForeignObject) String() string       { return "instance of " + o.class.name }
func (o *ForeignObject) Type() string         { return o.class.name }
func (o *ForeignObject) Freeze()              {}
func (o *ForeignObject) Truth() starlark.Bool { return starlark.True }
func (o *ForeignObject) AttrNames() []string  { return nil }

func (o *ForeignObject) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", o.class.name)
}

func (o *ForeignObject) Attr(name string) (starlark.Value, error) {
	if getter := o.class.method(name, false); getter != nil {
		return o.class.vm.callForeign(getter, o, nil)
	}
	return o.class.dispatcher(name, false, o), nil
}

func (o *ForeignObject) SetField(name string, value starlark.Value) error {
	sig := name + "=(_)"
	setter := o.class.method(sig, false)
	if setter == nil {
		return fmt.Errorf("%s does not implement '%s'", o.class.name, sig)
	}
	_, err := o.class.vm.callForeign(setter, o, starlark.Tuple{value})
	return err
}

type abortError struct {
	value starlark.Value
}

func (e *abortError) Error() string {
	if s, ok := e.value.(starlark.String); ok {
		return string(s)
	}
	return e.value.String()
}

// callForeign runs fn on a fresh slot frame and restores the caller's frame afterwards.
func (v *VM) callForeign(fn ForeignMethodFn, receiver starlark.Value, args starlark.Tuple) (starlark.Value, error) {
	savedSlots, savedAbort := v.slots, v.abort
	v.slots = make([]starlark.Value, 1+len(args))
	v.slots[0] = receiver
	copy(v.slots[1:], args)
	v.abort = nil

	fn(v)

	var result starlark.Value = starlark.None
	if len(v.slots) > 0 && v.slots[0] != nil {
		result = v.slots[0]
	}
	abort := v.abort
	v.slots, v.abort = savedSlots, savedAbort

	if abort != nil {
		return nil, &abortError{value: abort}
	}
	return result, nil
}

func (v *VM) foreignClassBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	moduleName := thread.CallFrame(1).Pos.Filename()

	var methods ForeignClassMethods
	if v.config.BindForeignClass != nil {
		methods = v.config.BindForeignClass(v, moduleName, name)
	}
	if methods.Allocate == nil {
		return nil, fmt.Errorf("could not find foreign class '%s' in module '%s'", name, moduleName)
	}

	class := &ForeignClass{
		vm:      v,
		module:  moduleName,
		name:    name,
		methods: methods,
		bound:   make(map[methodKey]ForeignMethodFn),
	}
	v.classes[classKey{
		module: moduleName,
		name:   name,
	}] = class
	return class, nil
}

// GetForeignClass stores a declared foreign class in slot.
// Classes are visible as soon as they are declared, before the declaring module finishes running.
func (v *VM) GetForeignClass(moduleName string, className string, slot int) bool {
	class, ok := v.classes[classKey{
		module: moduleName,
		name:   className,
	}]
	if !ok {
		return false
	}
	v.slots[slot] = class
	return true
}

// SetSlotNewForeign creates an instance of the foreign class in classSlot and stores it in slot.
func (v *VM) SetSlotNewForeign(slot int, classSlot int, size int) *ForeignBlock {
	class, ok := v.slots[classSlot].(*ForeignClass)
	if !ok {
		panic(fmt.Sprintf("slot %d does not hold a foreign class", classSlot))
	}
	block := &ForeignBlock{
		memory:   v.reallocate(nil, size),
		finalize: class.methods.Finalize,
	}
	obj := &ForeignObject{
		class: class,
		block: block,
	}

	v.foreign.Lock()
	v.foreign.live[block] = struct{}{}
	v.foreign.Unlock()
	runtime.AddCleanup(obj, v.finalizeBlock, block)

	v.slots[slot] = obj
	return block
}

func (v *VM) GetSlotForeign(slot int) *ForeignBlock {
	obj, ok := v.slots[slot].(*ForeignObject)
	if !ok {
		return nil
	}
	return obj.block
}

// ForeignClassOf reports the module and class of the foreign instance in slot.
func (v *VM) ForeignClassOf(slot int) (moduleName string, className string, ok bool) {
	obj, ok := v.slots[slot].(*ForeignObject)
	if !ok {
		return "", "", false
	}
	return obj.class.module, obj.class.name, true
}

func (v *VM) LiveForeign() int {
	v.foreign.Lock()
	defer v.foreign.Unlock()
	return len(v.foreign.live)
}

func (v *VM) finalizeBlock(block *ForeignBlock) {
	if block.done.Swap(true) {
		return
	}
	if block.finalize != nil {
		block.finalize(block.Data)
	}
	v.foreign.Lock()
	delete(v.foreign.live, block)
	v.foreign.Unlock()
	v.reallocate(block.memory, 0)
	block.memory = nil
}

package slotvm

import (
	"runtime"
	"sync"

	"github.com/reusee/starlarkutil"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

type VM struct {
	config   Config
	thread   *starlark.Thread
	builtins starlark.StringDict
	modules  map[string]*module

	slots []starlark.Value
	abort starlark.Value

	handles map[*Handle]struct{}

	// declared foreign classes, the latest declaration of a name wins
	classes map[classKey]*ForeignClass

	foreign struct {
		sync.Mutex
		live map[*ForeignBlock]struct{}
	}

	userData any
	freed    bool
}

type module struct {
	name    string
	globals starlark.StringDict
	loading bool
}

func NewVM(config *Config) *VM {
	vm := &VM{
		modules: make(map[string]*module),
		handles: make(map[*Handle]struct{}),
		classes: make(map[classKey]*ForeignClass),
	}
	if config != nil {
		vm.config = *config
	}
	if vm.config.Reallocate == nil {
		vm.config.Reallocate = DefaultReallocate
	}
	vm.userData = vm.config.UserData
	vm.foreign.live = make(map[*ForeignBlock]struct{})

	vm.thread = &starlark.Thread{
		Name: "slotvm",
		Print: func(_ *starlark.Thread, msg string) {
			vm.write(msg + "\n")
		},
		Load: vm.load,
	}

	vm.builtins = starlark.StringDict{
		"foreign_class": starlark.NewBuiltin("foreign_class", vm.foreignClassBuiltin),
		"struct":        starlark.NewBuiltin("struct", starlarkstruct.Make),
		"write": starlarkutil.MakeFunc("write", func(text string) {
			vm.write(text)
		}),
	}
	for name, value := range vm.config.Globals {
		vm.builtins[name] = toValue(value)
	}

	return vm
}

func (v *VM) write(text string) {
	if v.config.Write != nil {
		v.config.Write(v, text)
	}
}

func (v *VM) reportError(kind ErrorType, module string, line int, message string) {
	if v.config.Error != nil {
		v.config.Error(v, kind, module, line, message)
	}
}

func (v *VM) reallocate(memory []byte, newSize int) []byte {
	if memory == nil && newSize == 0 {
		return nil
	}
	return v.config.Reallocate(memory, newSize)
}

func (v *VM) UserData() any {
	return v.userData
}

func (v *VM) SetUserData(data any) {
	v.userData = data
}

func (v *VM) CollectGarbage() {
	runtime.GC()
}

// Free finalizes every live foreign block and drops module state.
// Unreleased handles stay allocated.
func (v *VM) Free() {
	if v.freed {
		return
	}
	v.freed = true

	v.foreign.Lock()
	blocks := make([]*ForeignBlock, 0, len(v.foreign.live))
	for block := range v.foreign.live {
		blocks = append(blocks, block)
	}
	v.foreign.Unlock()
	for _, block := range blocks {
		v.finalizeBlock(block)
	}

	v.modules = make(map[string]*module)
	v.classes = make(map[classKey]*ForeignClass)
	v.slots = nil
	v.abort = nil
}

func (v *VM) HasModule(name string) bool {
	_, ok := v.modules[name]
	return ok
}

func (v *VM) HasVariable(moduleName string, name string) bool {
	mod, ok := v.modules[moduleName]
	if !ok {
		return false
	}
	return mod.globals.Has(name)
}

func (v *VM) GetVariable(moduleName string, name string, slot int) {
	value := starlark.Value(starlark.None)
	if mod, ok := v.modules[moduleName]; ok {
		if got, ok := mod.globals[name]; ok {
			value = got
		}
	}
	v.slots[slot] = value
}

func (v *VM) AbortFiber(slot int) {
	value := v.slots[slot]
	if value == starlark.None {
		return
	}
	v.abort = value
}

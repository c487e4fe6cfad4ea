package slotvm

import (
	"maps"

	"go.starlark.net/repl"
	"go.starlark.net/starlark"
)

// REPL reads statements from the terminal and runs them against the named module's globals.
func (v *VM) REPL(moduleName string) {
	mod := v.module(moduleName)
	globals := make(starlark.StringDict, len(v.builtins)+len(mod.globals))
	maps.Copy(globals, v.builtins)
	maps.Copy(globals, mod.globals)

	repl.REPLOptions(fileOptions, v.thread, globals)

	for name, value := range globals {
		if _, ok := v.builtins[name]; ok && !mod.globals.Has(name) {
			continue
		}
		mod.globals[name] = value
	}
}

package slotvm

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const builtinFilename = "<builtin>"

func (v *VM) module(name string) *module {
	mod, ok := v.modules[name]
	if !ok {
		mod = &module{
			name:    name,
			globals: make(starlark.StringDict),
		}
		v.modules[name] = mod
	}
	return mod
}

// Interpret runs source in the named module, creating it on first use.
// Globals defined by earlier runs are visible to later ones.
func (v *VM) Interpret(moduleName string, source string) InterpretResult {
	v.slots = v.slots[:0]
	mod := v.module(moduleName)
	prog, err := v.compile(mod, source)
	if err != nil {
		v.reportCompile(moduleName, err)
		return ResultCompileError
	}
	if err := v.exec(mod, prog); err != nil {
		v.reportRuntime(err)
		return ResultRuntimeError
	}
	return ResultSuccess
}

func (v *VM) compile(mod *module, source string) (*starlark.Program, error) {
	_, prog, err := starlark.SourceProgramOptions(
		fileOptions,
		mod.name,
		source,
		func(name string) bool {
			return mod.globals.Has(name) || v.builtins.Has(name)
		},
	)
	return prog, err
}

func (v *VM) exec(mod *module, prog *starlark.Program) error {
	predeclared := make(starlark.StringDict, len(v.builtins)+len(mod.globals))
	maps.Copy(predeclared, v.builtins)
	maps.Copy(predeclared, mod.globals)
	globals, err := prog.Init(v.thread, predeclared)
	// partial globals are kept on error
	maps.Copy(mod.globals, globals)
	return err
}

func (v *VM) load(thread *starlark.Thread, name string) (starlark.StringDict, error) {
	importer := thread.CallFrame(0).Pos.Filename()

	canonical := name
	if v.config.ResolveModule != nil {
		resolved, ok := v.config.ResolveModule(v, importer, name)
		if !ok {
			return nil, fmt.Errorf("could not resolve module '%s' imported from '%s'", name, importer)
		}
		canonical = resolved
	}

	if mod, ok := v.modules[canonical]; ok {
		if mod.loading {
			return nil, fmt.Errorf("cycle in imports of module '%s'", canonical)
		}
		return mod.globals, nil
	}

	if v.config.LoadModule == nil {
		return nil, fmt.Errorf("could not load module '%s'", canonical)
	}
	result, ok := v.config.LoadModule(v, canonical)
	if !ok {
		return nil, fmt.Errorf("could not load module '%s'", canonical)
	}
	if result.OnComplete != nil {
		defer result.OnComplete(v, canonical, result)
	}

	mod := v.module(canonical)
	prog, err := v.compile(mod, result.Source)
	if err != nil {
		delete(v.modules, canonical)
		v.reportCompile(canonical, err)
		return nil, fmt.Errorf("could not compile module '%s'", canonical)
	}
	mod.loading = true
	err = v.exec(mod, prog)
	mod.loading = false
	if err != nil {
		return nil, err
	}
	return mod.globals, nil
}

func (v *VM) reportCompile(moduleName string, err error) {
	var list resolve.ErrorList
	var syntaxErr syntax.Error
	switch {

	case errors.As(err, &list):
		sorted := slices.Clone(list)
		slices.SortStableFunc(sorted, func(a, b resolve.Error) int {
			return cmp.Compare(a.Pos.Line, b.Pos.Line)
		})
		for _, e := range sorted {
			v.reportError(ErrorCompile, moduleName, int(e.Pos.Line), e.Msg)
		}

	case errors.As(err, &syntaxErr):
		v.reportError(ErrorCompile, moduleName, int(syntaxErr.Pos.Line), syntaxErr.Msg)

	default:
		v.reportError(ErrorCompile, moduleName, 0, err.Error())
	}
}

// reportRuntime emits the message, then one stack trace entry per script frame, innermost first.
func (v *VM) reportRuntime(err error) {
	var evalErr *starlark.EvalError
	if !errors.As(err, &evalErr) {
		v.reportError(ErrorRuntime, "", -1, err.Error())
		return
	}
	v.reportError(ErrorRuntime, "", -1, evalErr.Msg)
	stack := evalErr.CallStack
	for i := len(stack) - 1; i >= 0; i-- {
		frame := stack[i]
		if frame.Pos.Filename() == builtinFilename {
			continue
		}
		v.reportError(ErrorStackTrace, frame.Pos.Filename(), int(frame.Pos.Line), frame.Name)
	}
}

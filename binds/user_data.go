package binds

import (
	"log/slog"

	"github.com/reusee/slots/slotvm"
)

// UserData is installed as the vm's user data. Trampolines reach the session state through it.
type UserData struct {
	bindings *Bindings
	releases *releaseQueue
	errors   errorQueue
	resolver ModuleResolver
	loader   ModuleLoader
	write    func(text string)
	logger   *slog.Logger
}

func (u *UserData) Bindings() *Bindings {
	return u.bindings
}

func (u *UserData) vmConfig(reallocate func([]byte, int) []byte, globals map[string]any) *slotvm.Config {
	return &slotvm.Config{
		Reallocate: reallocate,

		ResolveModule: func(_ *slotvm.VM, importer string, name string) (string, bool) {
			return u.resolver.Resolve(importer, name)
		},

		LoadModule: func(_ *slotvm.VM, name string) (slotvm.LoadModuleResult, bool) {
			source, ok := u.loader.Load(name)
			if !ok {
				u.logger.Debug("module not loaded", "module", name)
				return slotvm.LoadModuleResult{}, false
			}
			u.logger.Debug("module loaded", "module", name)
			return slotvm.LoadModuleResult{
				Source: source,
				OnComplete: func(_ *slotvm.VM, name string, _ slotvm.LoadModuleResult) {
					u.loader.OnComplete(name)
				},
			}, true
		},

		BindForeignClass: func(_ *slotvm.VM, module string, className string) slotvm.ForeignClassMethods {
			methods, ok := u.bindings.Class(ClassKey{
				Module: module,
				Class:  className,
			})
			if !ok {
				u.logger.Debug("foreign class not bound",
					"module", module,
					"class", className,
				)
			}
			return methods
		},

		BindForeignMethod: func(_ *slotvm.VM, module string, className string, isStatic bool, signature string) slotvm.ForeignMethodFn {
			fn, ok := u.bindings.Method(MethodKey{
				Module:    module,
				Class:     className,
				Signature: signature,
				IsStatic:  isStatic,
			})
			if !ok {
				u.logger.Debug("foreign method not bound",
					"module", module,
					"class", className,
					"signature", signature,
					"static", isStatic,
				)
				return nil
			}
			return fn
		},

		Write: func(_ *slotvm.VM, text string) {
			u.write(text)
		},

		Error: func(_ *slotvm.VM, kind slotvm.ErrorType, module string, line int, message string) {
			u.errors.pushVM(kind, module, line, message)
		},

		Globals:  globals,
		UserData: u,
	}
}

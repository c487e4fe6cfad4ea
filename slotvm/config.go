package slotvm

// ForeignMethodFn runs with the receiver in slot 0 and arguments from slot 1.
// The value left in slot 0 is the result.
type ForeignMethodFn func(vm *VM)

// FinalizerFn receives the Data of a collected foreign block.
// It must not call back into the VM.
type FinalizerFn func(data any)

type ForeignClassMethods struct {
	Allocate ForeignMethodFn
	Finalize FinalizerFn
}

type LoadModuleResult struct {
	Source     string
	OnComplete func(vm *VM, name string, result LoadModuleResult)
	UserData   any
}

type Config struct {
	// Reallocate follows realloc semantics: nil memory allocates, zero size frees.
	// It may be called from a finalizer goroutine.
	Reallocate func(memory []byte, newSize int) []byte

	ResolveModule func(vm *VM, importer string, name string) (string, bool)

	LoadModule func(vm *VM, name string) (LoadModuleResult, bool)

	BindForeignMethod func(vm *VM, module string, className string, isStatic bool, signature string) ForeignMethodFn

	BindForeignClass func(vm *VM, module string, className string) ForeignClassMethods

	Write func(vm *VM, text string)

	Error func(vm *VM, kind ErrorType, module string, line int, message string)

	// Globals are predeclared in every module.
	Globals map[string]any

	UserData any
}

func DefaultReallocate(memory []byte, newSize int) []byte {
	if newSize == 0 {
		return nil
	}
	if memory == nil {
		return make([]byte, newSize)
	}
	if newSize <= cap(memory) {
		return memory[:newSize]
	}
	buf := make([]byte, newSize)
	copy(buf, memory)
	return buf
}

package slotvm

import (
	"strings"
	"testing"
)

type reported struct {
	kind    ErrorType
	module  string
	line    int
	message string
}

func newTestVM(t *testing.T, config *Config) (*VM, *[]reported, *strings.Builder) {
	var errs []reported
	output := new(strings.Builder)
	if config == nil {
		config = new(Config)
	}
	config.Write = func(_ *VM, text string) {
		output.WriteString(text)
	}
	config.Error = func(_ *VM, kind ErrorType, module string, line int, message string) {
		errs = append(errs, reported{kind, module, line, message})
	}
	vm := NewVM(config)
	t.Cleanup(vm.Free)
	return vm, &errs, output
}

func TestInterpret(t *testing.T) {
	vm, errs, output := newTestVM(t, nil)
	if res := vm.Interpret("main", `
x = 1
print("hello")
write("no newline")
`); res != ResultSuccess {
		t.Fatalf("got %v %+v", res, *errs)
	}
	if output.String() != "hello\nno newline" {
		t.Fatalf("got %q", output.String())
	}
	if !vm.HasModule("main") {
		t.Fatal()
	}
	if !vm.HasVariable("main", "x") {
		t.Fatal()
	}

	// later runs see earlier globals
	if res := vm.Interpret("main", `y = x + 1`); res != ResultSuccess {
		t.Fatalf("got %v %+v", res, *errs)
	}
	vm.EnsureSlots(1)
	vm.GetVariable("main", "y", 0)
	if vm.GetSlotDouble(0) != 2 {
		t.Fatalf("got %v", vm.GetSlotDouble(0))
	}
}

func TestCompileErrors(t *testing.T) {
	vm, errs, _ := newTestVM(t, nil)
	res := vm.Interpret("main", "a = 1\nb = undefined_one\nc = undefined_two\n")
	if res != ResultCompileError {
		t.Fatalf("got %v", res)
	}
	if len(*errs) != 2 {
		t.Fatalf("got %+v", *errs)
	}
	if (*errs)[0].line != 2 || (*errs)[1].line != 3 {
		t.Fatalf("got %+v", *errs)
	}
	for _, e := range *errs {
		if e.kind != ErrorCompile || e.module != "main" {
			t.Fatalf("got %+v", e)
		}
	}
}

func TestSyntaxError(t *testing.T) {
	vm, errs, _ := newTestVM(t, nil)
	res := vm.Interpret("main", "a = 1\nb = \"unterminated\n")
	if res != ResultCompileError {
		t.Fatalf("got %v", res)
	}
	if len(*errs) != 1 || (*errs)[0].line != 2 {
		t.Fatalf("got %+v", *errs)
	}
}

func TestRuntimeErrorStack(t *testing.T) {
	vm, errs, _ := newTestVM(t, nil)
	res := vm.Interpret("main", `
def inner():
    fail("boom")

def outer():
    inner()

outer()
`)
	if res != ResultRuntimeError {
		t.Fatalf("got %v", res)
	}
	got := *errs
	if len(got) != 4 {
		t.Fatalf("got %+v", got)
	}
	if got[0].kind != ErrorRuntime || !strings.Contains(got[0].message, "boom") {
		t.Fatalf("got %+v", got[0])
	}
	if got[1].kind != ErrorStackTrace || got[1].message != "inner" || got[1].line != 3 {
		t.Fatalf("got %+v", got[1])
	}
	if got[2].message != "outer" || got[3].message != "<toplevel>" {
		t.Fatalf("got %+v", got)
	}
}

func TestCallHandle(t *testing.T) {
	vm, errs, _ := newTestVM(t, nil)
	if res := vm.Interpret("main", `
def _add3(a, b, c):
    return a + b * c

Calc = struct(add3 = _add3)
`); res != ResultSuccess {
		t.Fatalf("got %v %+v", res, *errs)
	}

	vm.EnsureSlots(1)
	vm.GetVariable("main", "Calc", 0)
	receiver := vm.GetSlotHandle(0)
	method, err := vm.MakeCallHandle("add3(_,_,_)")
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range []struct {
		a, b, c, expected float64
	}{
		{1, 2, 3, 7},
		{0.5, 4, 0.25, 1.5},
	} {
		vm.EnsureSlots(4)
		vm.SetSlotHandle(0, receiver)
		vm.SetSlotDouble(1, c.a)
		vm.SetSlotDouble(2, c.b)
		vm.SetSlotDouble(3, c.c)
		if res := vm.Call(method); res != ResultSuccess {
			t.Fatalf("got %v %+v", res, *errs)
		}
		if vm.GetSlotCount() != 1 {
			t.Fatalf("got %v", vm.GetSlotCount())
		}
		if got := vm.GetSlotDouble(0); got != c.expected {
			t.Fatalf("got %v", got)
		}
	}

	vm.ReleaseHandle(receiver)
	vm.ReleaseHandle(method)
	if vm.LiveHandles() != 0 {
		t.Fatalf("got %v", vm.LiveHandles())
	}
}

func TestCallMissingMethod(t *testing.T) {
	vm, errs, _ := newTestVM(t, nil)
	if res := vm.Interpret("main", `Empty = struct()`); res != ResultSuccess {
		t.Fatal()
	}
	vm.EnsureSlots(1)
	vm.GetVariable("main", "Empty", 0)
	method, err := vm.MakeCallHandle("nope()")
	if err != nil {
		t.Fatal(err)
	}
	if res := vm.Call(method); res != ResultRuntimeError {
		t.Fatalf("got %v", res)
	}
	if len(*errs) != 1 || !strings.Contains((*errs)[0].message, "does not implement 'nope()'") {
		t.Fatalf("got %+v", *errs)
	}
	vm.ReleaseHandle(method)
}

func TestCallOperators(t *testing.T) {
	vm, _, _ := newTestVM(t, nil)
	for _, c := range []struct {
		sig      string
		a, b     float64
		expected any
	}{
		{"+(_)", 1, 2, 3.0},
		{"*(_)", 3, 4, 12.0},
		{"<(_)", 1, 2, true},
		{"==(_)", 2, 2, true},
	} {
		method, err := vm.MakeCallHandle(c.sig)
		if err != nil {
			t.Fatal(err)
		}
		vm.EnsureSlots(2)
		vm.SetSlotDouble(0, c.a)
		vm.SetSlotDouble(1, c.b)
		if res := vm.Call(method); res != ResultSuccess {
			t.Fatalf("%s: got %v", c.sig, res)
		}
		switch expected := c.expected.(type) {
		case float64:
			if got := vm.GetSlotDouble(0); got != expected {
				t.Fatalf("%s: got %v", c.sig, got)
			}
		case bool:
			if got := vm.GetSlotBool(0); got != expected {
				t.Fatalf("%s: got %v", c.sig, got)
			}
		}
		vm.ReleaseHandle(method)
	}
}

func TestSlotTypes(t *testing.T) {
	vm, _, _ := newTestVM(t, nil)
	vm.EnsureSlots(7)
	vm.SetSlotBool(0, true)
	vm.SetSlotDouble(1, 1.5)
	vm.SetSlotString(2, "str")
	vm.SetSlotNull(3)
	vm.SetSlotNewList(4)
	vm.SetSlotNewMap(5)
	vm.SetSlotBytes(6, []byte{0xff})
	for slot, expected := range []Type{
		TypeBool, TypeNum, TypeString, TypeNull, TypeList, TypeMap, TypeString,
	} {
		if got := vm.GetSlotType(slot); got != expected {
			t.Fatalf("slot %d: got %v", slot, got)
		}
	}
	if got := vm.GetSlotBytes(6); len(got) != 1 || got[0] != 0xff {
		t.Fatalf("got %v", got)
	}
}

func TestNumberRepresentation(t *testing.T) {
	vm, _, _ := newTestVM(t, nil)
	vm.EnsureSlots(1)
	for _, f := range []float64{0, 1, -3, 1.5, 1e300, 1 << 60} {
		vm.SetSlotDouble(0, f)
		if got := vm.GetSlotDouble(0); got != f {
			t.Fatalf("got %v, want %v", got, f)
		}
	}
}

func TestLists(t *testing.T) {
	vm, _, _ := newTestVM(t, nil)
	vm.EnsureSlots(2)
	vm.SetSlotNewList(0)
	for i, v := range []float64{1, 3} {
		vm.SetSlotDouble(1, v)
		if err := vm.InsertInList(0, -1, 1); err != nil {
			t.Fatal(err)
		}
		if vm.GetListCount(0) != i+1 {
			t.Fatal()
		}
	}
	vm.SetSlotDouble(1, 2)
	if err := vm.InsertInList(0, 1, 1); err != nil {
		t.Fatal(err)
	}
	vm.SetSlotDouble(1, 0)
	if err := vm.InsertInList(0, 0, 1); err != nil {
		t.Fatal(err)
	}
	for i := range 4 {
		vm.GetListElement(0, i, 1)
		if got := vm.GetSlotDouble(1); got != float64(i) {
			t.Fatalf("index %d: got %v", i, got)
		}
	}
	vm.GetListElement(0, -1, 1)
	if vm.GetSlotDouble(1) != 3 {
		t.Fatal()
	}
	vm.SetSlotString(1, "x")
	if err := vm.SetListElement(0, 2, 1); err != nil {
		t.Fatal(err)
	}
	vm.GetListElement(0, 2, 1)
	if vm.GetSlotString(1) != "x" {
		t.Fatal()
	}
}

func TestMaps(t *testing.T) {
	vm, _, _ := newTestVM(t, nil)
	vm.EnsureSlots(4)
	vm.SetSlotNewMap(0)
	vm.SetSlotString(1, "a")
	vm.SetSlotDouble(2, 1)
	if err := vm.SetMapValue(0, 1, 2); err != nil {
		t.Fatal(err)
	}
	if vm.GetMapCount(0) != 1 || !vm.GetMapContainsKey(0, 1) {
		t.Fatal()
	}
	vm.GetMapValue(0, 1, 3)
	if vm.GetSlotDouble(3) != 1 {
		t.Fatal()
	}
	vm.GetMapKeys(0, 3)
	if vm.GetListCount(3) != 1 {
		t.Fatal()
	}
	if err := vm.RemoveMapValue(0, 1, 3); err != nil {
		t.Fatal(err)
	}
	if vm.GetMapCount(0) != 0 || vm.GetSlotDouble(3) != 1 {
		t.Fatal()
	}
	vm.GetMapValue(0, 1, 3)
	if vm.GetSlotType(3) != TypeNull {
		t.Fatal()
	}
}

func TestGlobals(t *testing.T) {
	type Point struct {
		X, Y int
	}
	vm, errs, _ := newTestVM(t, &Config{
		Globals: map[string]any{
			"version": "1.0",
			"origin":  Point{X: 1, Y: 2},
			"limits":  []int{1, 2, 3},
		},
	})
	if res := vm.Interpret("main", `
if version != "1.0":
    fail("version")
if origin.X + origin.Y != 3:
    fail("origin")
if len(limits) != 3:
    fail("limits")
`); res != ResultSuccess {
		t.Fatalf("got %v %+v", res, *errs)
	}
}

func TestImport(t *testing.T) {
	var completed []string
	vm, errs, _ := newTestVM(t, &Config{
		ResolveModule: func(_ *VM, importer string, name string) (string, bool) {
			if importer != "main" {
				return "", false
			}
			return "lib/" + name, true
		},
		LoadModule: func(_ *VM, name string) (LoadModuleResult, bool) {
			if name != "lib/math" {
				return LoadModuleResult{}, false
			}
			return LoadModuleResult{
				Source: `def square(x):
    return x * x
`,
				OnComplete: func(_ *VM, name string, _ LoadModuleResult) {
					completed = append(completed, name)
				},
			}, true
		},
	})
	if res := vm.Interpret("main", `
load("math", "square")
result = square(4)
`); res != ResultSuccess {
		t.Fatalf("got %v %+v", res, *errs)
	}
	if !vm.HasModule("lib/math") {
		t.Fatal()
	}
	if len(completed) != 1 || completed[0] != "lib/math" {
		t.Fatalf("got %v", completed)
	}

	if res := vm.Interpret("other", `load("nope", "x")`); res != ResultRuntimeError {
		t.Fatalf("got %v", res)
	}
}

func TestAbortFiberNull(t *testing.T) {
	vm, _, _ := newTestVM(t, nil)
	vm.EnsureSlots(1)
	vm.AbortFiber(0)
	if vm.abort != nil {
		t.Fatal()
	}
}

func TestZeroSizeAllocation(t *testing.T) {
	calls := 0
	vm, _, _ := newTestVM(t, &Config{
		Reallocate: func(memory []byte, newSize int) []byte {
			calls++
			return DefaultReallocate(memory, newSize)
		},
	})
	if got := vm.reallocate(nil, 0); got != nil {
		t.Fatalf("got %v", got)
	}
	if calls != 0 {
		t.Fatalf("got %v", calls)
	}
}

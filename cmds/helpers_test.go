package cmds

import (
	"slices"
	"strings"
	"testing"
)

func TestVar(t *testing.T) {
	a := Var[int]("TestVar.a", "")
	b := Var[string]("TestVar.b", "")
	GlobalExecutor.MustExecute([]string{
		"TestVar.a", "42",
		"TestVar.b", "bar",
	})
	if *a != 42 || *b != "bar" {
		t.Fatalf("got %v %v", *a, *b)
	}
	GlobalExecutor.MustExecute([]string{
		"TestVar.a.",
	})
	if *a != 0 {
		t.Fatalf("got %v", *a)
	}
}

func TestSwitch(t *testing.T) {
	foo := Switch("TestSwitch", "")
	GlobalExecutor.MustExecute([]string{
		"TestSwitch",
	})
	if !*foo {
		t.Fatal("should be on")
	}
	GlobalExecutor.MustExecute([]string{
		"!TestSwitch",
	})
	if *foo {
		t.Fatal("should be off")
	}
}

func TestCollect(t *testing.T) {
	list := Collect[string]("TestCollect", "")
	GlobalExecutor.MustExecute([]string{
		"TestCollect", "a",
		"TestCollect", "b",
	})
	if !slices.Equal(*list, []string{"a", "b"}) {
		t.Fatalf("got %v", *list)
	}
}

func TestTypedVar(t *testing.T) {
	type Foo string
	v := Var[Foo]("TestTypedVar", "")
	GlobalExecutor.MustExecute([]string{
		"TestTypedVar", "bar",
	})
	if *v != "bar" {
		t.Fatalf("got %v", *v)
	}
}

func TestHelperDescriptions(t *testing.T) {
	Var[int]("TestHelperDescriptions", "set the answer")
	buf := new(strings.Builder)
	output := GlobalExecutor.output
	GlobalExecutor.output = buf
	defer func() {
		GlobalExecutor.output = output
	}()
	GlobalExecutor.PrintUsage()
	if !strings.Contains(buf.String(), "TestHelperDescriptions <int>\tset the answer\n") {
		t.Fatalf("got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "TestHelperDescriptions.\treset TestHelperDescriptions\n") {
		t.Fatalf("got %q", buf.String())
	}
}

package cmds

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestExecutor(t *testing.T) {
	executor := NewExecutor()

	var a int
	executor.Define("+a", Func(func() {
		a = 42
	}))
	executor.Define("a", Func(func(i int) {
		a = i
	}))

	if err := executor.Execute([]string{
		"+a",
	}); err != nil {
		t.Fatal(err)
	}
	if a != 42 {
		t.Fatalf("got %v", a)
	}

	if err := executor.Execute([]string{
		"a", "1",
	}); err != nil {
		t.Fatal(err)
	}
	if a != 1 {
		t.Fatalf("got %v", a)
	}

	err := executor.Execute([]string{
		"foo",
	})
	if err == nil || !strings.Contains(err.Error(), "unknown command: foo") {
		t.Fatalf("got %v", err)
	}

	err = executor.Execute([]string{
		"a", "x",
	})
	if err == nil || !strings.Contains(err.Error(), "convert x to int") {
		t.Fatalf("got %v", err)
	}
}

func TestSubCommands(t *testing.T) {
	executor := NewExecutor()
	var bar, baz int
	executor.Define("foo", Sub(map[string]*Command{
		"bar": Func(func() {
			bar = 1
		}),
		"baz": Func(func(i int) {
			baz = i
		}),
	}))

	if err := executor.Execute([]string{
		"foo",
		"bar",
		"baz", "42",
	}); err != nil {
		t.Fatal(err)
	}
	if bar != 1 || baz != 42 {
		t.Fatalf("got %v %v", bar, baz)
	}
}

func TestDuplicatedSubCommand(t *testing.T) {
	executor := NewExecutor()
	executor.Define("foo", Sub(map[string]*Command{
		"a": nil,
	}))
	executor.Define("bar", Sub(map[string]*Command{
		"a": nil,
	}))
	err := executor.Execute([]string{"foo", "bar"})
	if err == nil || !strings.Contains(err.Error(), "duplicated sub command: bar a") {
		t.Fatalf("got %v", err)
	}
}

func TestOptionalArgument(t *testing.T) {
	executor := NewExecutor()
	var n int
	var s string
	executor.Define("foo", Func(func(arg *int, arg2 *string) {
		n = *arg
		s = *arg2
	}))

	if err := executor.Execute([]string{"foo", "42", "foo"}); err != nil {
		t.Fatal(err)
	}
	if n != 42 || s != "foo" {
		t.Fatalf("got %v %v", n, s)
	}

	if err := executor.Execute([]string{"foo", "99"}); err != nil {
		t.Fatal(err)
	}
	if n != 99 || s != "" {
		t.Fatalf("got %v %v", n, s)
	}

	if err := executor.Execute([]string{"foo"}); err != nil {
		t.Fatal(err)
	}
	if n != 0 || s != "" {
		t.Fatalf("got %v %v", n, s)
	}
}

func TestBoolArgument(t *testing.T) {
	executor := NewExecutor()
	var b bool
	executor.Define("b", Func(func(v bool) {
		b = v
	}))
	if err := executor.Execute([]string{"b", "yes"}); err != nil {
		t.Fatal(err)
	}
	if !b {
		t.Fatal("should be true")
	}
	if err := executor.Execute([]string{"b", "off"}); err != nil {
		t.Fatal(err)
	}
	if b {
		t.Fatal("should be false")
	}
	if err := executor.Execute([]string{"b", "maybe"}); err == nil {
		t.Fatal("should error")
	}
}

func TestFuncValidation(t *testing.T) {
	for _, fn := range []any{
		42,
		func(map[string]int) {},
		func() int { return 0 },
		func() (error, error) { return nil, nil },
	} {
		func() {
			defer func() {
				if p := recover(); p == nil {
					t.Fatalf("should panic: %T", fn)
				}
			}()
			Func(fn)
		}()
	}
	Func(func(*float64, uint8, string) error { return nil })
}

func TestExecuteErrors(t *testing.T) {
	executor := NewExecutor()
	executor.Define("small", Func(func(n int8, f *float32) {}))
	executor.Define("fails", Func(func() error {
		return errors.New("boom")
	}))

	err := executor.Execute([]string{"small", "300"})
	var argErr *ArgError
	if !errors.As(err, &argErr) || argErr.Command != "small" || argErr.Index != 0 {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(err, strconv.ErrRange) {
		t.Fatalf("got %v", err)
	}

	err = executor.Execute([]string{"small"})
	if !errors.As(err, &argErr) || !strings.Contains(err.Error(), "expecting int8 argument") {
		t.Fatalf("got %v", err)
	}

	if err := executor.Execute([]string{"small", "1", "x"}); !errors.As(err, &argErr) || argErr.Index != 1 {
		t.Fatalf("got %v", err)
	}

	err = executor.Execute([]string{"fails"})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("got %v", err)
	}

	var unknownErr *UnknownCommandError
	if err := executor.Execute([]string{"small", "1", "2.5", "nope"}); !errors.As(err, &unknownErr) || unknownErr.Name != "nope" {
		t.Fatalf("got %v", err)
	}
}

func TestSubCommandScope(t *testing.T) {
	executor := NewExecutor()
	var got []string
	executor.Define("outer", Sub(map[string]*Command{
		"inner": Sub(map[string]*Command{
			"leaf": Func(func() {
				got = append(got, "leaf")
			}),
		}),
	}))
	executor.Define("top", Func(func() {
		got = append(got, "top")
	}))

	// sub commands are not visible before their parent
	if err := executor.Execute([]string{"inner"}); err == nil {
		t.Fatal("should error")
	}
	// outer scopes stay visible
	if err := executor.Execute([]string{"outer", "inner", "leaf", "top", "leaf"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "leaf,top,leaf" {
		t.Fatalf("got %v", got)
	}
}

package slotvm

import (
	"errors"
	"testing"
)

func TestParseSignature(t *testing.T) {
	for _, c := range []struct {
		text  string
		kind  SigKind
		name  string
		arity int
	}{
		{"foo", SigGetter, "foo", 0},
		{"foo()", SigMethod, "foo", 0},
		{"foo(_)", SigMethod, "foo", 1},
		{"add3(_,_,_)", SigMethod, "add3", 3},
		{"x=(_)", SigSetter, "x", 1},
		{"[_]", SigSubscript, "[]", 1},
		{"[_]=(_)", SigSubscriptSetter, "[]=", 2},
		{"+(_)", SigOperator, "+", 1},
		{"<=(_)", SigOperator, "<=", 1},
		{"-", SigUnary, "-", 0},
	} {
		sig, err := ParseSignature(c.text)
		if err != nil {
			t.Fatalf("%s: %v", c.text, err)
		}
		if sig.Kind != c.kind || sig.Name != c.name || sig.Arity != c.arity || sig.Text != c.text {
			t.Fatalf("%s: got %+v", c.text, sig)
		}
	}

	for _, text := range []string{
		"",
		"foo(",
		"foo(_,)",
		"foo(a)",
		"foo (_)",
		"[]",
		"[_",
		"@(_)",
		"foo=",
	} {
		_, err := ParseSignature(text)
		var sigErr *SignatureError
		if !errors.As(err, &sigErr) {
			t.Fatalf("%q: got %v", text, err)
		}
	}
}

func TestMethodSignature(t *testing.T) {
	if s := MethodSignature("foo", 0); s != "foo()" {
		t.Fatalf("got %s", s)
	}
	if s := MethodSignature("foo", 3); s != "foo(_,_,_)" {
		t.Fatalf("got %s", s)
	}
}

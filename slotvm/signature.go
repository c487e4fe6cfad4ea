package slotvm

import (
	"fmt"
	"strings"
)

type SigKind uint8

const (
	SigMethod SigKind = iota
	SigGetter
	SigSetter
	SigSubscript
	SigSubscriptSetter
	SigOperator
	SigUnary
)

type Signature struct {
	Text  string
	Name  string
	Kind  SigKind
	Arity int
}

type SignatureError struct {
	Signature string
	Reason    string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid signature %q: %s", e.Signature, e.Reason)
}

var binaryOperators = []string{
	"<<", ">>", "<=", ">=", "==", "!=",
	"+", "-", "*", "/", "%", "<", ">", "&", "|", "^",
}

var unaryOperators = []string{"-", "!", "~"}

// MethodSignature formats name with arity placeholders, e.g. "dot(_)".
func MethodSignature(name string, arity int) string {
	return name + "(" + strings.TrimSuffix(strings.Repeat("_,", arity), ",") + ")"
}

func ParseSignature(text string) (*Signature, error) {
	fail := func(reason string) (*Signature, error) {
		return nil, &SignatureError{
			Signature: text,
			Reason:    reason,
		}
	}
	if text == "" {
		return fail("empty")
	}

	// subscript
	if strings.HasPrefix(text, "[") {
		end := strings.IndexByte(text, ']')
		if end < 0 {
			return fail("unterminated subscript")
		}
		arity, ok := parseParams(text[1:end])
		if !ok || arity == 0 {
			return fail("bad subscript parameters")
		}
		rest := text[end+1:]
		switch rest {
		case "":
			return &Signature{Text: text, Name: "[]", Kind: SigSubscript, Arity: arity}, nil
		case "=(_)":
			return &Signature{Text: text, Name: "[]=", Kind: SigSubscriptSetter, Arity: arity + 1}, nil
		}
		return fail("unexpected text after subscript")
	}

	// operators
	if !isIdentStart(text[0]) {
		for _, op := range binaryOperators {
			if text == op+"(_)" {
				return &Signature{Text: text, Name: op, Kind: SigOperator, Arity: 1}, nil
			}
		}
		for _, op := range unaryOperators {
			if text == op {
				return &Signature{Text: text, Name: op, Kind: SigUnary}, nil
			}
		}
		return fail("unknown operator")
	}

	i := 1
	for i < len(text) && isIdentPart(text[i]) {
		i++
	}
	name, rest := text[:i], text[i:]
	switch {
	case rest == "":
		return &Signature{Text: text, Name: name, Kind: SigGetter}, nil
	case rest == "=(_)":
		return &Signature{Text: text, Name: name, Kind: SigSetter, Arity: 1}, nil
	case strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")"):
		arity, ok := parseParams(rest[1 : len(rest)-1])
		if !ok {
			return fail("bad parameter list")
		}
		return &Signature{Text: text, Name: name, Kind: SigMethod, Arity: arity}, nil
	}
	return fail("unexpected character after name")
}

func parseParams(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	parts := strings.Split(s, ",")
	for _, part := range parts {
		if part != "_" {
			return 0, false
		}
	}
	return len(parts), true
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

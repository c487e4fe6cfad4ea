package slotvm

import (
	"fmt"
	"slices"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var binaryTokens = map[string]syntax.Token{
	"+":  syntax.PLUS,
	"-":  syntax.MINUS,
	"*":  syntax.STAR,
	"/":  syntax.SLASH,
	"%":  syntax.PERCENT,
	"&":  syntax.AMP,
	"|":  syntax.PIPE,
	"^":  syntax.CIRCUMFLEX,
	"<<": syntax.LTLT,
	">>": syntax.GTGT,
}

var compareTokens = map[string]syntax.Token{
	"==": syntax.EQL,
	"!=": syntax.NEQ,
	"<":  syntax.LT,
	">":  syntax.GT,
	"<=": syntax.LE,
	">=": syntax.GE,
}

// Call invokes method on the receiver in slot 0 with arguments in the following slots.
// On success slot 0 holds the result and the slot count is 1.
func (v *VM) Call(method *Handle) InterpretResult {
	sig := method.signature
	if sig == nil {
		panic("not a call handle")
	}
	if len(v.slots) < 1+sig.Arity {
		v.slots = v.slots[:0]
		v.reportError(ErrorRuntime, "", -1, fmt.Sprintf("not enough slots for '%s'", sig.Text))
		return ResultRuntimeError
	}

	receiver := v.slots[0]
	args := slices.Clone(v.slots[1 : 1+sig.Arity])
	result, err := v.invoke(receiver, sig, args)
	if err != nil {
		v.slots = v.slots[:0]
		v.reportRuntime(err)
		return ResultRuntimeError
	}
	v.slots = append(v.slots[:0], result)
	return ResultSuccess
}

func notImplemented(receiver starlark.Value, sig *Signature) error {
	return fmt.Errorf("%s does not implement '%s'", receiver.Type(), sig.Text)
}

func (v *VM) invoke(receiver starlark.Value, sig *Signature, args starlark.Tuple) (starlark.Value, error) {
	switch sig.Kind {

	case SigGetter:
		return attr(receiver, sig)

	case SigSetter:
		setter, ok := receiver.(starlark.HasSetField)
		if !ok {
			return nil, notImplemented(receiver, sig)
		}
		if err := setter.SetField(sig.Name, args[0]); err != nil {
			return nil, err
		}
		return args[0], nil

	case SigMethod:
		if sig.Name == "call" {
			if _, ok := receiver.(starlark.Callable); ok {
				return v.callValue(receiver, sig, args)
			}
		}
		fn, err := attr(receiver, sig)
		if err != nil {
			return nil, err
		}
		return v.callValue(fn, sig, args)

	case SigSubscript:
		if len(args) != 1 {
			return nil, notImplemented(receiver, sig)
		}
		return subscript(receiver, args[0])

	case SigSubscriptSetter:
		if len(args) != 2 {
			return nil, notImplemented(receiver, sig)
		}
		if err := setSubscript(receiver, args[0], args[1]); err != nil {
			return nil, err
		}
		return args[1], nil

	case SigOperator:
		if token, ok := compareTokens[sig.Name]; ok {
			ok, err := starlark.Compare(token, receiver, args[0])
			if err != nil {
				return nil, err
			}
			return starlark.Bool(ok), nil
		}
		return starlark.Binary(binaryTokens[sig.Name], receiver, args[0])

	case SigUnary:
		switch sig.Name {
		case "!":
			return !receiver.Truth(), nil
		case "-":
			return starlark.Unary(syntax.MINUS, receiver)
		case "~":
			return starlark.Unary(syntax.TILDE, receiver)
		}

	}
	return nil, notImplemented(receiver, sig)
}

func attr(receiver starlark.Value, sig *Signature) (starlark.Value, error) {
	hasAttrs, ok := receiver.(starlark.HasAttrs)
	if !ok {
		return nil, notImplemented(receiver, sig)
	}
	value, err := hasAttrs.Attr(sig.Name)
	if _, missing := err.(starlark.NoSuchAttrError); missing || (err == nil && value == nil) {
		return nil, notImplemented(receiver, sig)
	}
	return value, err
}

func (v *VM) callValue(fn starlark.Value, sig *Signature, args starlark.Tuple) (starlark.Value, error) {
	if f, ok := fn.(*starlark.Function); ok {
		if !f.HasVarargs() && f.NumParams() != len(args) {
			return nil, fmt.Errorf("%s expects %d arguments, called as '%s'", f.Name(), f.NumParams(), sig.Text)
		}
	}
	return starlark.Call(v.thread, fn, args, nil)
}

func subscript(receiver starlark.Value, key starlark.Value) (starlark.Value, error) {
	switch x := receiver.(type) {
	case starlark.Mapping:
		value, found, err := x.Get(key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("key %s not in %s", key, x.Type())
		}
		return value, nil
	case starlark.Indexable:
		i, err := index(x.Len(), key)
		if err != nil {
			return nil, err
		}
		return x.Index(i), nil
	}
	return nil, fmt.Errorf("%s is not subscriptable", receiver.Type())
}

func setSubscript(receiver starlark.Value, key starlark.Value, value starlark.Value) error {
	switch x := receiver.(type) {
	case starlark.HasSetKey:
		return x.SetKey(key, value)
	case starlark.HasSetIndex:
		i, err := index(x.Len(), key)
		if err != nil {
			return err
		}
		return x.SetIndex(i, value)
	}
	return fmt.Errorf("%s does not support item assignment", receiver.Type())
}

func index(length int, key starlark.Value) (int, error) {
	i, err := starlark.AsInt32(key)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, fmt.Errorf("index %s out of range [0:%d]", key, length)
	}
	return i, nil
}

package binds

import (
	"reflect"

	"github.com/reusee/slots/slotvm"
)

type ClassKey struct {
	Module string
	Class  string
}

type MethodKey struct {
	Module    string
	Class     string
	Signature string
	IsStatic  bool
}

type classBinding struct {
	key      ClassKey
	typ      reflect.Type
	size     int
	allocate slotvm.ForeignMethodFn
	finalize slotvm.FinalizerFn
	// wrap builds the block data for a host value of typ
	wrap func(reflect.Value) any
	// read copies the value out of a block holding typ
	read func(*slotvm.ForeignBlock) (reflect.Value, error)
}

// Bindings is filled while a session is built and read-only afterwards.
type Bindings struct {
	classes map[ClassKey]*classBinding
	methods map[MethodKey]slotvm.ForeignMethodFn
	types   map[reflect.Type]*classBinding
}

func NewBindings() *Bindings {
	return &Bindings{
		classes: make(map[ClassKey]*classBinding),
		methods: make(map[MethodKey]slotvm.ForeignMethodFn),
		types:   make(map[reflect.Type]*classBinding),
	}
}

// addClass overwrites earlier registrations of the same key or type.
func (b *Bindings) addClass(binding *classBinding) {
	if old, ok := b.classes[binding.key]; ok && b.types[old.typ] == old {
		delete(b.types, old.typ)
	}
	b.classes[binding.key] = binding
	b.types[binding.typ] = binding
}

func (b *Bindings) addMethod(key MethodKey, fn slotvm.ForeignMethodFn) {
	b.methods[key] = fn
}

func (b *Bindings) classOfType(t reflect.Type) (*classBinding, bool) {
	binding, ok := b.types[t]
	return binding, ok
}

// ClassKeyOf returns the class registered for host type t.
func (b *Bindings) ClassKeyOf(t reflect.Type) (ClassKey, bool) {
	binding, ok := b.types[t]
	if !ok {
		return ClassKey{}, false
	}
	return binding.key, true
}

func ClassKeyFor[T any](b *Bindings) (ClassKey, bool) {
	return b.ClassKeyOf(reflect.TypeFor[T]())
}

func (b *Bindings) Class(key ClassKey) (slotvm.ForeignClassMethods, bool) {
	binding, ok := b.classes[key]
	if !ok {
		return slotvm.ForeignClassMethods{}, false
	}
	return slotvm.ForeignClassMethods{
		Allocate: binding.allocate,
		Finalize: binding.finalize,
	}, true
}

func (b *Bindings) Method(key MethodKey) (slotvm.ForeignMethodFn, bool) {
	fn, ok := b.methods[key]
	return fn, ok
}

func (b *Bindings) NumClasses() int {
	return len(b.classes)
}

func (b *Bindings) NumMethods() int {
	return len(b.methods)
}

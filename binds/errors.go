package binds

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/reusee/slots/slotvm"
)

var (
	ErrNullPtr             = errors.New("unexpected null pointer")
	ErrForeignType         = errors.New("foreign value has a different type")
	ErrUtf8                = errors.New("string is not valid utf-8")
	ErrBorrow              = errors.New("foreign value is already mutably borrowed")
	ErrBorrowMut           = errors.New("foreign value is already borrowed. Was it passed into multiple foreign call arguments?")
	ErrAlreadyLeaked       = errors.New("handle already leaked or released")
	ErrResultQueueMismatch = errors.New("interpret result does not match the error queue")
	ErrUserDataNull        = errors.New("vm user data is null")
	ErrSessionClosed       = errors.New("session closed")
)

// Diagnostic is one compile error line.
type Diagnostic struct {
	Module  string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s line %d] [Error] %s", d.Module, d.Line, d.Message)
}

type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	lines := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		lines = append(lines, d.String())
	}
	return strings.Join(lines, "\n")
}

// StackFrame is one entry of a runtime stack trace.
// IsForeign marks frames pushed by host functions.
type StackFrame struct {
	Module    string
	Line      int
	Function  string
	IsForeign bool
}

func (f StackFrame) String() string {
	marker := ""
	if f.IsForeign {
		marker = "*"
	}
	return fmt.Sprintf("[%s%s line %d] in %s", marker, f.Module, f.Line, f.Function)
}

type RuntimeError struct {
	Message string
	// Foreign is the host error that aborted the script, if any.
	Foreign error
	// Stack is ordered innermost first.
	Stack []StackFrame
	// Imports holds compile errors of modules imported during the failed run.
	Imports []Diagnostic
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("[Runtime Error] ")
	b.WriteString(e.Message)
	for _, d := range e.Imports {
		b.WriteString("\n")
		b.WriteString(d.String())
	}
	for _, frame := range e.Stack {
		b.WriteString("\n")
		b.WriteString(frame.String())
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error {
	return e.Foreign
}

// ErrorAbsentError is returned when the VM reports failure without reporting any error.
type ErrorAbsentError struct {
	Result slotvm.InterpretResult
}

func (e *ErrorAbsentError) Error() string {
	return fmt.Sprintf("vm returned %v without reporting an error", e.Result)
}

type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found", e.Module)
}

type VariableNotFoundError struct {
	Module string
	Name   string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable '%s' not found in module '%s'", e.Name, e.Module)
}

type ClassNotFoundError struct {
	Type reflect.Type
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("no foreign class registered for %v", e.Type)
}

type SlotOutOfBoundsError struct {
	Slot  int
	Count int
}

func (e *SlotOutOfBoundsError) Error() string {
	return fmt.Sprintf("slot %d out of bounds, slot count is %d", e.Slot, e.Count)
}

type SlotTypeError struct {
	Slot     int
	Expected slotvm.Type
	Actual   slotvm.Type
}

func (e *SlotTypeError) Error() string {
	return fmt.Sprintf("slot %d: expected %v, got %v", e.Slot, e.Expected, e.Actual)
}

type IndexOutOfBoundsError struct {
	Index int
	Len   int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("index %d out of bounds, length is %d", e.Index, e.Len)
}

type ForeignCallError struct {
	Function string
	Cause    error
}

func (e *ForeignCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Function, e.Cause)
}

func (e *ForeignCallError) Unwrap() error {
	return e.Cause
}

type GetArgError struct {
	Slot  int
	Cause error
}

func (e *GetArgError) Error() string {
	return fmt.Sprintf("argument in slot %d: %v", e.Slot, e.Cause)
}

func (e *GetArgError) Unwrap() error {
	return e.Cause
}

type InvalidSignatureError struct {
	Signature string
	Cause     error
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature '%s': %v", e.Signature, e.Cause)
}

func (e *InvalidSignatureError) Unwrap() error {
	return e.Cause
}

type ArityError struct {
	Signature string
	Want      int
	Got       int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("'%s' takes %d arguments, got %d", e.Signature, e.Want, e.Got)
}

// ForeignError carries a script location for the synthetic stack frame of a failed host function.
type ForeignError struct {
	Module string
	Line   int
	Err    error
}

func (e *ForeignError) Error() string {
	return e.Err.Error()
}

func (e *ForeignError) Unwrap() error {
	return e.Err
}

// Annotate attaches a script location to err.
func Annotate(err error, module string, line int) error {
	if err == nil {
		return nil
	}
	return &ForeignError{
		Module: module,
		Line:   line,
		Err:    err,
	}
}

type HandleLeakError struct {
	Count int
}

func (e *HandleLeakError) Error() string {
	return fmt.Sprintf("%d handles not released before close", e.Count)
}

package slotvm

type Type uint8

const (
	TypeBool Type = iota
	TypeNum
	TypeForeign
	TypeList
	TypeMap
	TypeNull
	TypeString
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeNum:
		return "Num"
	case TypeForeign:
		return "Foreign"
	case TypeList:
		return "List"
	case TypeMap:
		return "Map"
	case TypeNull:
		return "Null"
	case TypeString:
		return "String"
	}
	return "Unknown"
}

type InterpretResult uint8

const (
	ResultSuccess InterpretResult = iota
	ResultCompileError
	ResultRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	}
	return "unknown result"
}

type ErrorType uint8

const (
	ErrorCompile ErrorType = iota
	ErrorRuntime
	ErrorStackTrace
)

func (e ErrorType) String() string {
	switch e {
	case ErrorCompile:
		return "compile"
	case ErrorRuntime:
		return "runtime"
	case ErrorStackTrace:
		return "stack trace"
	}
	return "unknown"
}

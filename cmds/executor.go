package cmds

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// Executor dispatches argument lists to named commands.
type Executor struct {
	commands map[string]*Command
	output   io.Writer
}

func NewExecutor() *Executor {
	ret := &Executor{
		commands: make(map[string]*Command),
		output:   os.Stderr,
	}

	usage := Func(func() {
		ret.PrintUsage()
		os.Exit(0)
	}).
		Desc("print this usage").
		Alias("help", "-help", "--help")
	ret.Define("-h", usage)

	return ret
}

func (p *Executor) Define(name string, command *Command) {
	for _, name := range append([]string{name}, command.Aliases...) {
		if _, ok := p.commands[name]; ok {
			panic(fmt.Errorf("duplicated command %s", name))
		}
		p.commands[name] = command
	}
}

type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return "unknown command: " + e.Name
}

// ArgError reports an argument that could not be converted to the parameter type.
type ArgError struct {
	Command string
	Index   int
	Err     error
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("command %s argument %d: %v", e.Command, e.Index, e.Err)
}

func (e *ArgError) Unwrap() error {
	return e.Err
}

var errorType = reflect.TypeFor[error]()

// scope resolves names in its own commands first, then in parent.
// Sub commands become visible after their parent command runs.
type scope struct {
	commands map[string]*Command
	parent   *scope
}

func (s *scope) lookup(name string) (*Command, bool) {
	for ; s != nil; s = s.parent {
		if command, ok := s.commands[name]; ok {
			return command, true
		}
	}
	return nil, false
}

func (p *Executor) Execute(args []string) error {
	current := &scope{
		commands: p.commands,
	}
	for len(args) > 0 {
		name := strings.TrimSpace(args[0])
		args = args[1:]

		command, ok := current.lookup(name)
		if !ok || command == nil {
			return &UnknownCommandError{
				Name: name,
			}
		}

		if command.Func.IsValid() {
			var err error
			args, err = call(name, command.Func, args)
			if err != nil {
				return err
			}
		}

		if len(command.Subs) > 0 {
			for subname := range command.Subs {
				if _, ok := current.lookup(subname); ok {
					return fmt.Errorf("duplicated sub command: %s %s", name, subname)
				}
			}
			current = &scope{
				commands: command.Subs,
				parent:   current,
			}
		}
	}
	return nil
}

// call consumes one argument per parameter of fn and returns the rest.
func call(name string, fn reflect.Value, args []string) ([]string, error) {
	fnType := fn.Type()
	callArgs := make([]reflect.Value, 0, fnType.NumIn())
	for i := range fnType.NumIn() {
		value, err := parseArg(fnType.In(i), args)
		if err != nil {
			return nil, &ArgError{
				Command: name,
				Index:   i,
				Err:     err,
			}
		}
		if len(args) > 0 {
			args = args[1:]
		}
		callArgs = append(callArgs, value)
	}
	rets := fn.Call(callArgs)
	if len(rets) > 0 && !rets[0].IsNil() {
		return nil, rets[0].Interface().(error)
	}
	return args, nil
}

func (p *Executor) MustExecute(args []string) {
	if err := p.Execute(args); err != nil {
		panic(err)
	}
}

func parseArg(t reflect.Type, args []string) (ret reflect.Value, err error) {
	if t.Kind() == reflect.Pointer {
		if len(args) == 0 {
			// optional, use zero value
			return reflect.New(t.Elem()), nil
		}
		elem, err := parseArg(t.Elem(), args)
		if err != nil {
			return ret, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	if len(args) == 0 {
		return ret, fmt.Errorf("expecting %v argument, got nothing", t)
	}
	str := args[0]
	ret = reflect.New(t).Elem()

	switch t.Kind() {

	case reflect.Bool:
		v, err := parseBool(str)
		if err != nil {
			return ret, err
		}
		ret.SetBool(v)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(str, 10, t.Bits())
		if err != nil {
			return ret, fmt.Errorf("convert %s to int: %w", str, err)
		}
		ret.SetInt(v)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(str, 10, t.Bits())
		if err != nil {
			return ret, fmt.Errorf("convert %s to unsigned int: %w", str, err)
		}
		ret.SetUint(v)

	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(str, t.Bits())
		if err != nil {
			return ret, fmt.Errorf("convert %s to float: %w", str, err)
		}
		ret.SetFloat(v)

	case reflect.String:
		ret.SetString(str)

	default:
		return ret, fmt.Errorf("unsupported type: %v", t)
	}

	return ret, nil
}

func parseBool(str string) (bool, error) {
	switch strings.ToLower(str) {
	case "true", "t", "yes", "y", "1", "on":
		return true, nil
	case "false", "f", "no", "n", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("convert %s to bool: unknown value", str)
}

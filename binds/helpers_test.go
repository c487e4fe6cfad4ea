package binds

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestSession(t *testing.T, configure ...func(*Builder)) (*Session, *strings.Builder) {
	t.Helper()
	out := new(strings.Builder)
	builder := NewBuilder().
		WithLogger(testLogger).
		WithModuleLoader(MapLoader{}).
		WithWriteFn(func(text string) {
			out.WriteString(text)
		}).
		WithModule("main", registerVec2)
	for _, fn := range configure {
		fn(builder)
	}
	session := builder.Build()
	t.Cleanup(func() {
		_ = session.Close()
	})
	return session, out
}

func withContext(t *testing.T, session *Session, fn func(ctx *Context)) {
	t.Helper()
	if err := session.Context(fn); err != nil {
		t.Fatal(err)
	}
}

func interpret(t *testing.T, session *Session, module string, source string) {
	t.Helper()
	if err := session.Interpret(module, source); err != nil {
		t.Fatalf("interpret: %v", err)
	}
}

type vec2 struct {
	X, Y float64
}

func registerVec2(m *ModuleBuilder) {
	Register[vec2](m, "Vec2").
		Construct(func(ctx *Context) (vec2, error) {
			x, err := Arg[float64](ctx, 1)
			if err != nil {
				return vec2{}, err
			}
			y, err := Arg[float64](ctx, 2)
			if err != nil {
				return vec2{}, err
			}
			return vec2{x, y}, nil
		}).
		Method("dot(_)", func(ctx *Context, self *vec2) (any, error) {
			other, err := Arg[*Cell[vec2]](ctx, 1)
			if err != nil {
				return nil, err
			}
			ref, err := other.TryBorrow()
			if err != nil {
				return nil, err
			}
			defer ref.Release()
			return self.X*ref.Value().X + self.Y*ref.Value().Y, nil
		}).
		MethodMut("absorb(_)", func(ctx *Context, self *vec2) (any, error) {
			other, err := Arg[*Cell[vec2]](ctx, 1)
			if err != nil {
				return nil, err
			}
			ref, err := other.TryBorrow()
			if err != nil {
				return nil, err
			}
			defer ref.Release()
			self.X += ref.Value().X
			self.Y += ref.Value().Y
			return nil, nil
		}).
		Getter("x", func(self *vec2) any {
			return self.X
		}).
		Getter("y", func(self *vec2) any {
			return self.Y
		}).
		Setter("x", func(ctx *Context, self *vec2) error {
			x, err := Arg[float64](ctx, 1)
			if err != nil {
				return err
			}
			self.X = x
			return nil
		}).
		Static("zero()", func(ctx *Context) (any, error) {
			return vec2{}, nil
		}).
		Static("fail()", func(ctx *Context) (any, error) {
			return nil, Annotate(errors.New("boom"), "main", 42)
		}).
		Func("add(_)", func(self *vec2, other vec2) vec2 {
			return vec2{self.X + other.X, self.Y + other.Y}
		}).
		FuncMut("grow(_)", func(self *vec2, other vec2) {
			self.X += other.X
			self.Y += other.Y
		}).
		Func("scaled(_,_)", func(x, factor float64) (vec2, error) {
			if factor == 0 {
				return vec2{}, errors.New("zero factor")
			}
			return vec2{x * factor, x * factor}, nil
		})
}

type resource struct {
	closed *atomic.Int32
}

func (r *resource) Close() error {
	r.closed.Add(1)
	return nil
}

func registerResource(closed *atomic.Int32) func(m *ModuleBuilder) {
	return func(m *ModuleBuilder) {
		Register[*resource](m, "Resource").
			Construct(func(ctx *Context) (*resource, error) {
				return &resource{
					closed: closed,
				}, nil
			})
	}
}

package binds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/slots/configs"
	"github.com/reusee/slots/logs"
	"github.com/reusee/slots/modes"
)

func testScope(t *testing.T) dscope.Scope {
	return dscope.New(
		new(Module),
		modes.ForTest(t),
	).Fork(
		func() configs.Paths {
			return configs.Paths{"testdata/slots.cue"}
		},
		func() logs.Writer {
			return io.Discard
		},
	)
}

func TestModuleConfig(t *testing.T) {
	testScope(t).Call(func(
		config Config,
		newSession NewSession,
	) {
		if len(config.ModuleRoots) != 1 || config.ModuleRoots[0] != "testdata/scripts" {
			t.Fatalf("got %v", config.ModuleRoots)
		}
		if config.PoolSize != 2 {
			t.Fatalf("got %v", config.PoolSize)
		}
		if !config.StrictHandles || !config.TrackAllocations {
			t.Fatalf("got %+v", config)
		}
		if config.Globals["greeting"] != "hello" {
			t.Fatalf("got %v", config.Globals)
		}

		session := newSession()
		defer func() {
			if err := session.Close(); err != nil {
				t.Fatal(err)
			}
		}()
		if session.AllocTracker() == nil {
			t.Fatal("tracker expected")
		}
		if err := session.Interpret("main", `
load("greet", "greet")
msg = greet("world")
`); err != nil {
			t.Fatal(err)
		}
		msg, err := ContextResult(session, func(ctx *Context) (string, error) {
			return GetVar[string](ctx, "main", "msg")
		})
		if err != nil {
			t.Fatal(err)
		}
		if msg != "hello, world" {
			t.Fatalf("got %v", msg)
		}
	})
}

func TestModulePool(t *testing.T) {
	testScope(t).Call(func(
		newPool NewPool,
	) {
		pool := newPool(func(b *Builder) {
			b.WithModule("main", registerVec2)
		})
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 64)
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- pool.Do(ctx, func(session *Session) error {
					name := fmt.Sprintf("n%d", i)
					if err := session.Interpret("main", fmt.Sprintf(`
load("greet", "greet")
Vec2 = foreign_class("Vec2")
msg = greet(%q)
d = Vec2(1, 2).dot(Vec2(%d, 1))
`, name, i)); err != nil {
						return err
					}
					return session.Context(func(ctx *Context) {
						msg, err := GetVar[string](ctx, "main", "msg")
						if err != nil {
							errs <- err
							return
						}
						if msg != "hello, "+name {
							errs <- fmt.Errorf("got %v", msg)
						}
						d, err := GetVar[int](ctx, "main", "d")
						if err != nil {
							errs <- err
							return
						}
						if d != i+2 {
							errs <- fmt.Errorf("got %v", d)
						}
					})
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatal(err)
			}
		}

		if err := pool.Close(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestModulePoolDiscardsFailedSession(t *testing.T) {
	testScope(t).Call(func(
		newPool NewPool,
	) {
		pool := newPool()
		defer func() {
			if err := pool.Close(); err != nil {
				t.Fatal(err)
			}
		}()
		ctx := context.Background()

		var failedID string
		err := pool.Do(ctx, func(session *Session) error {
			failedID = session.ID()
			return session.Interpret("main", `fail("broken")`)
		})
		var runtimeErr *RuntimeError
		if !errors.As(err, &runtimeErr) {
			t.Fatalf("got %v", err)
		}

		for range 4 {
			if err := pool.Do(ctx, func(session *Session) error {
				if session.ID() == failedID {
					return fmt.Errorf("discarded session reused")
				}
				return nil
			}); err != nil {
				t.Fatal(err)
			}
		}

		// other errors keep the session open
		var kept *Session
		sentinel := errors.New("sentinel")
		if err := pool.Do(ctx, func(session *Session) error {
			kept = session
			return sentinel
		}); !errors.Is(err, sentinel) {
			t.Fatalf("got %v", err)
		}
		if err := kept.Context(func(*Context) {}); err != nil {
			t.Fatal(err)
		}
	})
}

func TestModulePoolContext(t *testing.T) {
	testScope(t).Call(func(
		newPool NewPool,
	) {
		pool := newPool()
		defer pool.Close()

		hold := make(chan struct{})
		held := make(chan struct{}, 2)
		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = pool.Do(context.Background(), func(*Session) error {
					held <- struct{}{}
					<-hold
					return nil
				})
			}()
		}
		<-held
		<-held

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := pool.Do(ctx, func(*Session) error {
			return nil
		}); !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v", err)
		}
		close(hold)
		wg.Wait()
	})
}

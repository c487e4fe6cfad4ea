package binds

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/reusee/slots/slotvm"
)

type moduleRegistration struct {
	name     string
	register func(m *ModuleBuilder)
}

// Builder configures a Session.
type Builder struct {
	modules    []moduleRegistration
	write      func(text string)
	resolver   ModuleResolver
	loader     ModuleLoader
	logger     *slog.Logger
	reallocate func(memory []byte, newSize int) []byte
	tracker    *AllocTracker
	strict     bool
	globals    map[string]any
}

func NewBuilder() *Builder {
	return &Builder{
		globals: make(map[string]any),
	}
}

// WithModule adds the foreign classes registered by register to the named module.
// Registrations run in Build, in the order they were added.
func (b *Builder) WithModule(name string, register func(m *ModuleBuilder)) *Builder {
	b.modules = append(b.modules, moduleRegistration{
		name:     name,
		register: register,
	})
	return b
}

// WithWriteFn sets the sink of script output. Output goes to stdout by default.
func (b *Builder) WithWriteFn(fn func(text string)) *Builder {
	b.write = fn
	return b
}

func (b *Builder) WithModuleResolver(resolver ModuleResolver) *Builder {
	b.resolver = resolver
	return b
}

func (b *Builder) WithModuleLoader(loader ModuleLoader) *Builder {
	b.loader = loader
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAllocator sets the vm allocation function. It is ignored when an AllocTracker is set.
func (b *Builder) WithAllocator(reallocate func(memory []byte, newSize int) []byte) *Builder {
	b.reallocate = reallocate
	return b
}

func (b *Builder) WithAllocTracker(tracker *AllocTracker) *Builder {
	b.tracker = tracker
	return b
}

// WithStrictHandles makes Close fail when handles are still live.
func (b *Builder) WithStrictHandles(strict bool) *Builder {
	b.strict = strict
	return b
}

// WithGlobal predeclares name in every module.
func (b *Builder) WithGlobal(name string, value any) *Builder {
	b.globals[name] = value
	return b
}

func (b *Builder) WithConfig(config Config) *Builder {
	if len(config.ModuleRoots) > 0 {
		b.loader = &FileLoader{
			Roots: config.ModuleRoots,
			Ext:   config.ModuleExt,
		}
	}
	b.strict = config.StrictHandles
	if config.TrackAllocations && b.tracker == nil {
		b.tracker = NewAllocTracker()
	}
	maps.Copy(b.globals, config.Globals)
	return b
}

func (b *Builder) Build() *Session {
	id := uuid.NewString()
	logger := cmp.Or(b.logger, slog.Default()).With("session", id)

	write := b.write
	if write == nil {
		write = func(text string) {
			fmt.Print(text)
		}
	}

	var resolver ModuleResolver = UnitResolver{}
	if b.resolver != nil {
		resolver = b.resolver
	}

	loader := b.loader
	if loader == nil {
		loader = NewFileLoader("")
	}
	if fileLoader, ok := loader.(*FileLoader); ok && fileLoader.Logger == nil {
		fileLoader.Logger = logger
	}

	reallocate := b.reallocate
	if b.tracker != nil {
		reallocate = b.tracker.Reallocate
	}

	bindings := NewBindings()
	for _, module := range b.modules {
		module.register(&ModuleBuilder{
			name:     module.name,
			bindings: bindings,
			logger:   logger,
		})
	}

	userData := &UserData{
		bindings: bindings,
		releases: new(releaseQueue),
		resolver: resolver,
		loader:   loader,
		write:    write,
		logger:   logger,
	}
	vm := slotvm.NewVM(userData.vmConfig(reallocate, maps.Clone(b.globals)))

	logger.Debug("session built",
		"classes", bindings.NumClasses(),
		"methods", bindings.NumMethods(),
	)

	return &Session{
		vm:       vm,
		userData: userData,
		id:       id,
		logger:   logger,
		tracker:  b.tracker,
		strict:   b.strict,
	}
}

package binds

import (
	"cmp"
	"runtime"
	"slices"

	"github.com/reusee/dscope"
	"github.com/reusee/slots/configs"
	"github.com/reusee/slots/logs"
	"github.com/reusee/slots/modes"
)

type Module struct {
	dscope.Module
	Logs    logs.Module
	Configs configs.Module
}

type Config struct {
	// ModuleRoots are searched in order by the file loader
	ModuleRoots      []string
	ModuleExt        string
	StrictHandles    bool
	TrackAllocations bool
	PoolSize         int
	Globals          map[string]any
}

func (Module) Config(
	loader configs.Loader,
	mode modes.Mode,
) Config {
	development := mode == modes.ModeDevelopment
	config := Config{
		ModuleRoots:      slices.Collect(configs.All[string](loader, "module_root")),
		ModuleExt:        configs.First[string](loader, "module_ext"),
		StrictHandles:    development,
		TrackAllocations: development,
		PoolSize:         cmp.Or(configs.First[int](loader, "pool_size"), runtime.GOMAXPROCS(0)),
		Globals:          configs.First[map[string]any](loader, "globals"),
	}
	if strict := configs.First[*bool](loader, "strict_handles"); strict != nil {
		config.StrictHandles = *strict
	}
	if track := configs.First[*bool](loader, "track_allocations"); track != nil {
		config.TrackAllocations = *track
	}
	return config
}

type NewSession func(configure ...func(*Builder)) *Session

func (Module) NewSession(
	logger logs.Logger,
	config Config,
) NewSession {
	return func(configure ...func(*Builder)) *Session {
		builder := NewBuilder().
			WithLogger(logger).
			WithConfig(config)
		for _, fn := range configure {
			fn(builder)
		}
		return builder.Build()
	}
}

type NewPool func(configure ...func(*Builder)) *Pool

func (Module) NewPool(
	newSession NewSession,
	newSpan logs.NewSpan,
	logger logs.Logger,
	config Config,
) NewPool {
	return func(configure ...func(*Builder)) *Pool {
		pool := NewSessionPool(config.PoolSize, func() *Session {
			return newSession(configure...)
		})
		pool.newSpan = newSpan
		pool.logger = logger
		return pool
	}
}

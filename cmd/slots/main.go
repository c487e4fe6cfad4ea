package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/reusee/dscope"
	"github.com/reusee/slots/binds"
	"github.com/reusee/slots/cmds"
	"github.com/reusee/slots/logs"
	"github.com/reusee/slots/modes"
)

var (
	scripts = cmds.Collect[string]("run", "run a script file in a module named after it")
	source  = cmds.Var[string]("eval", "run source in module main")
	tap     = cmds.Var[string]("tap", "start a prompt on a module after running")
	roots   = cmds.Collect[string]("root", "add a module search directory")
	strict  = cmds.Switch("strict", "fail when handles are not released")
	dev     = cmds.Switch("dev", "development defaults: strict handles and allocation tracking")
	level   = cmds.Var[string]("log", "log level: debug, info, warn or error")
)

func main() {
	cmds.Execute(os.Args[1:])
	if len(*scripts) == 0 && *source == "" && *tap == "" {
		cmds.GlobalExecutor.PrintUsage()
		os.Exit(2)
	}

	var mode any = modes.ForProduction()
	if *dev {
		mode = modes.ForDevelopment()
	}

	dscope.New(
		new(Module),
		mode,
	).Call(func(
		logger logs.Logger,
		logLevel logs.Level,
		newSession binds.NewSession,
		config binds.Config,
	) {
		if *level != "" {
			if err := logLevel.UnmarshalText([]byte(*level)); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		}

		session := newSession(func(b *binds.Builder) {
			b.WithModuleLoader(&binds.FileLoader{
				Roots: moduleRoots(*roots, *scripts, config.ModuleRoots),
				Ext:   config.ModuleExt,
			})
			if *strict {
				b.WithStrictHandles(true)
			}
		})
		logger.Debug("session started", "session", session.ID())

		err := run(session, *scripts, *source, *tap)
		if closeErr := session.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	})
}

func run(session *binds.Session, scripts []string, source string, tap string) error {
	for _, path := range scripts {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := session.Interpret(moduleName(path), string(content)); err != nil {
			return fmt.Errorf("run %s: %w", path, err)
		}
	}
	if source != "" {
		if err := session.Interpret("main", source); err != nil {
			return err
		}
	}
	if tap != "" {
		return session.Tap(tap)
	}
	return nil
}

// moduleName maps a script path to the module it runs in.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// moduleRoots orders the import search path: explicit roots, script directories, then configured roots.
func moduleRoots(explicit []string, scripts []string, configured []string) []string {
	var ret []string
	add := func(root string) {
		if !slices.Contains(ret, root) {
			ret = append(ret, root)
		}
	}
	for _, root := range explicit {
		add(root)
	}
	for _, path := range scripts {
		add(filepath.Dir(path))
	}
	for _, root := range configured {
		add(root)
	}
	if len(ret) == 0 {
		add(".")
	}
	return ret
}

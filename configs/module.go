package configs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/dscope"
)

type Module struct {
	dscope.Module
}

//go:embed schema.cue
var schema string

// Paths lists the config files found, in lookup order.
type Paths []string

func (Module) Paths() Paths {
	var paths Paths

	filenames := []string{
		"slots.cue",
		".slots.cue",
	}

	// working directory
	workingDir, err := os.Getwd()
	if err == nil {
		for _, filename := range filenames {
			path := filepath.Join(workingDir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}

	// user config dir
	configDir, err := os.UserConfigDir()
	if err == nil {
		for _, filename := range filenames {
			path := filepath.Join(configDir, "slots", filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}

	// system wide dir
	for _, filename := range filenames {
		path := filepath.Join("/etc", filename)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}

	return paths
}

func (Module) Loader(
	paths Paths,
) Loader {
	return NewLoader(paths, schema)
}

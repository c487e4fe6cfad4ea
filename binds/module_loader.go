package binds

import (
	"cmp"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const DefaultModuleExt = ".wren"

type ModuleResolver interface {
	// Resolve maps an import name to a canonical module name.
	Resolve(importer string, name string) (string, bool)
}

type ModuleLoader interface {
	Load(name string) (string, bool)
	// OnComplete is called after the loaded source has run.
	OnComplete(name string)
}

// UnitResolver uses import names as module names.
type UnitResolver struct{}

var _ ModuleResolver = UnitResolver{}

func (UnitResolver) Resolve(_ string, name string) (string, bool) {
	return name, true
}

// FileLoader reads <root>/<name><ext>, trying each root in order.
type FileLoader struct {
	Roots  []string
	Ext    string
	Logger *slog.Logger
}

var _ ModuleLoader = new(FileLoader)

// NewFileLoader loads modules from root, or from the executable's directory when root is empty.
func NewFileLoader(root string) *FileLoader {
	if root == "" {
		if exe, err := os.Executable(); err == nil {
			root = filepath.Dir(exe)
		}
	}
	return &FileLoader{
		Roots: []string{root},
	}
}

func (l *FileLoader) Load(name string) (string, bool) {
	ext := cmp.Or(l.Ext, DefaultModuleExt)
	if !strings.HasSuffix(name, ext) {
		name += ext
	}
	for _, root := range l.Roots {
		path := filepath.Join(root, filepath.FromSlash(name))
		content, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) && l.Logger != nil {
				l.Logger.Warn("read module", "path", path, "error", err)
			}
			continue
		}
		return string(content), true
	}
	return "", false
}

func (l *FileLoader) OnComplete(string) {}

// MapLoader serves modules from memory.
type MapLoader map[string]string

var _ ModuleLoader = MapLoader{}

func (m MapLoader) Load(name string) (string, bool) {
	source, ok := m[name]
	return source, ok
}

func (m MapLoader) OnComplete(string) {}

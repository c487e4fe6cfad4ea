package configs

import (
	"errors"
	"testing"

	"github.com/reusee/dscope"
)

func TestModuleSchema(t *testing.T) {
	dscope.New(new(Module)).Fork(
		func() Paths {
			return Paths{"testdata/slots.cue"}
		},
	).Call(func(
		loader Loader,
	) {
		if got := First[string](loader, "module_root"); got != "scripts" {
			t.Fatalf("got %v", got)
		}
		if got := First[int](loader, "pool_size"); got != 4 {
			t.Fatalf("got %v", got)
		}
		if got := First[string](loader, "module_ext"); got != "" {
			t.Fatalf("got %v", got)
		}
	})
}

func TestModuleSchemaReject(t *testing.T) {
	loader := NewLoader([]string{"testdata/bad_pool.cue"}, schema)
	var size int
	err := loader.AssignFirst("pool_size", &size)
	var fileErr *FileError
	if !errors.As(err, &fileErr) || fileErr.File != "testdata/bad_pool.cue" {
		t.Fatalf("got %v", err)
	}
}

package main

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/reusee/slots/binds"
)

func TestModuleName(t *testing.T) {
	if got := moduleName("a/b/util.wren"); got != "util" {
		t.Fatalf("got %v", got)
	}
	if got := moduleName("main"); got != "main" {
		t.Fatalf("got %v", got)
	}
}

func TestModuleRoots(t *testing.T) {
	got := moduleRoots(
		[]string{"lib"},
		[]string{"scripts/a.wren", "scripts/b.wren", "lib/c.wren"},
		[]string{"/etc/slots"},
	)
	if !slices.Equal(got, []string{"lib", "scripts", "/etc/slots"}) {
		t.Fatalf("got %v", got)
	}
	if got := moduleRoots(nil, nil, nil); !slices.Equal(got, []string{"."}) {
		t.Fatalf("got %v", got)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.wren"), []byte("def half(x):\n    return x / 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "main.wren")
	if err := os.WriteFile(script, []byte("load(\"lib\", \"half\")\nn = half(8)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	session := binds.NewBuilder().
		WithModuleLoader(&binds.FileLoader{
			Roots: moduleRoots(nil, []string{script}, nil),
		}).
		Build()
	defer session.Close()

	if err := run(session, []string{script}, "m = n + 1", ""); err != nil {
		t.Fatal(err)
	}
	m, err := binds.ContextResult(session, func(ctx *binds.Context) (float64, error) {
		return binds.GetVar[float64](ctx, "main", "m")
	})
	if err != nil {
		t.Fatal(err)
	}
	if m != 5 {
		t.Fatalf("got %v", m)
	}

	err = run(session, []string{filepath.Join(dir, "missing.wren")}, "", "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
}

package configs

import (
	"errors"
	"iter"
)

// First returns the value at path from the first file defining it, or the zero value.
// Load and decode errors panic; they indicate a broken configuration.
func First[T any](loader Loader, path string) T {
	var value T
	if err := loader.AssignFirst(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value
		}
		panic(err)
	}
	return value
}

// All yields the value at path from every file defining it, in lookup order.
func All[T any](loader Loader, path string) iter.Seq[T] {
	return func(yield func(T) bool) {
		for info, err := range loader.lookup(path) {
			if err != nil {
				panic(err)
			}
			var v T
			if err := info.value.Decode(&v); err != nil {
				panic(&ValueError{
					Path: path,
					File: info.path,
					Err:  err,
				})
			}
			if !yield(v) {
				break
			}
		}
	}
}

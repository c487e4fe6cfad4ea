package configs

import (
	"errors"
	"fmt"
)

var ErrValueNotFound = errors.New("value not found")

// FileError reports a config file that could not be read, compiled or validated.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("config file %s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ValueError reports a value that exists but does not decode into the requested type.
type ValueError struct {
	Path string
	File string
	Err  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("config value %s in %s: %v", e.Path, e.File, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

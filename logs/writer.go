package logs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/reusee/slots/configs"
)

type Writer io.Writer

// Writer appends to log_file when configured, otherwise writes to stderr.
// The file stays open for the life of the process.
func (Module) Writer(
	loader configs.Loader,
) Writer {
	path := configs.First[string](loader, "log_file")
	if path == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		panic(err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		panic(err)
	}
	return f
}

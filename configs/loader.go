package configs

import (
	"iter"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Loader reads a list of cue files lazily and looks values up across them in order.
type Loader struct {
	getRoots func() ([]rootInfo, error)
}

type rootInfo struct {
	value cue.Value
	path  string
}

func NewLoader(filePaths []string, schemaSrc string) Loader {
	return Loader{
		getRoots: sync.OnceValues(func() (ret []rootInfo, err error) {
			ctx := cuecontext.New()

			var schema cue.Value
			if schemaSrc != "" {
				schema = ctx.CompileString("close({" + schemaSrc + "})")
				if err := schema.Err(); err != nil {
					return nil, err
				}
			}

			for _, filePath := range filePaths {
				info, err := loadRoot(ctx, schema, filePath)
				if err != nil {
					return nil, &FileError{
						File: filePath,
						Err:  err,
					}
				}
				ret = append(ret, info)
			}

			return
		}),
	}
}

func loadRoot(ctx *cue.Context, schema cue.Value, filePath string) (ret rootInfo, err error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	value := ctx.CompileBytes(
		content,
		cue.Filename(filePath),
	)
	if err = value.Err(); err != nil {
		return
	}
	if schema.Exists() {
		if err = schema.Unify(value).Validate(); err != nil {
			return
		}
	}
	return rootInfo{
		value: value,
		path:  filePath,
	}, nil
}

// Files returns the paths of the loaded files, or the first load error.
func (l Loader) Files() ([]string, error) {
	roots, err := l.getRoots()
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(roots))
	for _, info := range roots {
		ret = append(ret, info.path)
	}
	return ret, nil
}

// lookup yields path's value in every file that defines it, with the file's path.
func (l Loader) lookup(path string) iter.Seq2[rootInfo, error] {
	return func(yield func(rootInfo, error) bool) {
		roots, err := l.getRoots()
		if err != nil {
			yield(rootInfo{}, err)
			return
		}
		cuePath := cue.ParsePath(path)
		for _, info := range roots {
			value := info.value.LookupPath(cuePath)
			if value.Err() != nil || !value.Exists() {
				continue
			}
			if !yield(rootInfo{
				value: value,
				path:  info.path,
			}, nil) {
				return
			}
		}
	}
}

func (l Loader) IterCueValues(path string) iter.Seq2[*cue.Value, error] {
	return func(yield func(*cue.Value, error) bool) {
		for info, err := range l.lookup(path) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(&info.value, nil) {
				return
			}
		}
	}
}

// AssignFirst decodes the first file's value at path into target.
func (l Loader) AssignFirst(path string, target any) error {
	for info, err := range l.lookup(path) {
		if err != nil {
			return err
		}
		if err := info.value.Decode(target); err != nil {
			return &ValueError{
				Path: path,
				File: info.path,
				Err:  err,
			}
		}
		return nil
	}
	return ErrValueNotFound
}

package utils

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ResolveFile returns the path of the given file relative to the root
// of the codebase. For example, if this file currently
// lives in utils/file.go and ./foo/bar/baz is given, then the result
// is foo/bar/baz. This is helpful when you don't want to relatively
// refer to files when you're not sure where the caller actually
// lives in relation to the target file.
func ResolveFile(fn string) string {
	//nolint:dogsled
	_, thisFilePath, _, _ := runtime.Caller(0)
	thisDirPath, err := filepath.Abs(filepath.Dir(thisFilePath))
	if err != nil {
		panic(err)
	}
	return filepath.Join(thisDirPath, "..", fn)
}

// CopyFile copies the regular file at src to dst, creating or truncating dst.
func CopyFile(src, dst string) (err error) {
	//nolint:gosec
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(in.Close)

	//nolint:gosec
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()

	if _, err = io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "copying %q to %q", src, dst)
	}
	return nil
}

// CopyDirFiles copies every regular file directly inside src into dst, which must exist. rename
// maps a source file name to its destination name; nil keeps names unchanged. Files are copied in
// lexical order and the destination names are returned.
func CopyDirFiles(src, dst string, rename func(name string) string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var copied []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if rename != nil {
			name = rename(name)
		}
		if err := CopyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, name)); err != nil {
			return copied, err
		}
		copied = append(copied, name)
	}
	return copied, nil
}

// ReplaceExt swaps the extension of a file name, e.g. ReplaceExt("3.jpeg", ".jpg") is "3.jpg".
func ReplaceExt(name, ext string) string {
	return name[:len(name)-len(filepath.Ext(name))] + ext
}

package main

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/svanichkin/pngview/internal/oops"
)

var (
	ErrBadFilePath      = errors.New("bad file path")
	ErrFailedToOpenFile = errors.New("failed to open file")
	ErrFailedToReadFile = errors.New("failed to read file")
)

// loadFile reads a whole input file. The returned error wraps one of the
// loader errors above.
func loadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, oops.New(ErrBadFilePath, "empty path")
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, oops.New(ErrBadFilePath, "%s does not exist", path)
	}
	if err != nil {
		return nil, oops.New(ErrFailedToOpenFile, "%s (%v)", path, err)
	}
	if info.IsDir() {
		return nil, oops.New(ErrBadFilePath, "%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, oops.New(ErrFailedToOpenFile, "%s (%v)", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, oops.New(ErrFailedToReadFile, "%s (%v)", path, err)
	}
	return data, nil
}

package transfer

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileHash identifies a file in the file transfer messages. Both ends only
// compare it with what the sender announced, so any stable hash works.
func FileHash(absPath string) int {
	h := fnv.New32a()
	h.Write([]byte(absPath))
	return int(int32(h.Sum32()))
}

// UniqueFile returns a path for name inside dir that does not exist yet,
// adding _1, _2 and so on before the extension when needed.
func UniqueFile(dir, name string) string {
	name = filepath.Base(name)
	path := filepath.Join(dir, name)
	if !exists(path) {
		return path
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		if !exists(path) {
			return path
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

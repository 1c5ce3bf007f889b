package selector

import (
	"os"
	"path/filepath"
)

// fileSystem abstracts the filesystem operations enumeration needs, so
// tests can stub them.
type fileSystem interface {
	Stat(path string) (os.FileInfo, error)
	Walk(root string, walkFn filepath.WalkFunc) error
	EvalSymlinks(path string) (string, error)
}

// defaultFileSystem implements fileSystem using the standard library.
type defaultFileSystem struct{}

func (fs defaultFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (fs defaultFileSystem) Walk(root string, walkFn filepath.WalkFunc) error {
	return filepath.Walk(root, walkFn)
}

func (fs defaultFileSystem) EvalSymlinks(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}

// osFS is the filesystem used by Enumerate; swapped out in tests.
var osFS fileSystem = defaultFileSystem{}

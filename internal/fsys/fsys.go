// Package fsys is the storage boundary used by the packer and validator.
// Nothing above this package touches the operating system directly, so the
// same code runs against a real disk or an in-memory filesystem.
package fsys

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Entry is one immediate child returned by ReadDir.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
	Mode  fs.FileMode
}

// FS is the set of file operations the card tooling needs.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	ReadTextFile(name string) (string, error)
	WriteTextFile(name, text string) error
	ReadDir(name string) ([]Entry, error)
	Mkdir(name string, recursive bool) error
	Exists(name string) (bool, error)
	IsDir(name string) (bool, error)
	Rmdir(name string, recursive bool) error
}

// Afero adapts an afero.Fs to FS.
type Afero struct {
	fs afero.Fs
}

// New wraps an afero filesystem.
func New(fs afero.Fs) *Afero {
	return &Afero{fs: fs}
}

// NewOS returns an FS backed by the operating system.
func NewOS() *Afero {
	return New(afero.NewOsFs())
}

// NewMemory returns an empty in-memory FS.
func NewMemory() *Afero {
	return New(afero.NewMemMapFs())
}

// Afero exposes the wrapped filesystem.
func (a *Afero) Afero() afero.Fs {
	return a.fs
}

func (a *Afero) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(a.fs, name)
}

func (a *Afero) WriteFile(name string, data []byte) error {
	return afero.WriteFile(a.fs, name, data, filePerm)
}

func (a *Afero) ReadTextFile(name string) (string, error) {
	data, err := a.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (a *Afero) WriteTextFile(name, text string) error {
	return a.WriteFile(name, []byte(text))
}

// ReadDir lists the immediate children of name sorted by name.
func (a *Afero) ReadDir(name string) ([]Entry, error) {
	infos, err := afero.ReadDir(a.fs, name)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:  info.Name(),
			IsDir: info.IsDir(),
			Size:  info.Size(),
			Mode:  info.Mode(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (a *Afero) Mkdir(name string, recursive bool) error {
	if recursive {
		return a.fs.MkdirAll(name, dirPerm)
	}
	return a.fs.Mkdir(name, dirPerm)
}

func (a *Afero) Exists(name string) (bool, error) {
	return afero.Exists(a.fs, name)
}

func (a *Afero) IsDir(name string) (bool, error) {
	ok, err := afero.IsDir(a.fs, name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return ok, err
}

// Rmdir removes a directory. Without recursive the directory must be empty.
func (a *Afero) Rmdir(name string, recursive bool) error {
	exists, err := a.Exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return &fs.PathError{Op: "rmdir", Path: name, Err: fs.ErrNotExist}
	}
	isDir, err := a.IsDir(name)
	if err != nil {
		return err
	}
	if !isDir {
		return &fs.PathError{Op: "rmdir", Path: name, Err: errors.New("not a directory")}
	}
	if recursive {
		return a.fs.RemoveAll(name)
	}
	return a.fs.Remove(name)
}

// Relative returns target relative to base using forward slashes.
func Relative(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

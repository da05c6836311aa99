package validator

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/arcanaland/cardpack/internal/archive"
	"github.com/arcanaland/cardpack/internal/fsys"
)

// Source is a card project as seen by the validator: either a directory or
// an archive. Paths are forward-slash and relative to the project root.
type Source interface {
	Location() string
	Exists(rel string) (bool, error)
	IsDir(rel string) (bool, error)
	Read(rel string) ([]byte, error)
}

// DirSource reads a project directory through the filesystem adapter.
type DirSource struct {
	fs   fsys.FS
	root string
}

// NewDirSource returns a Source over a project directory.
func NewDirSource(fs fsys.FS, root string) *DirSource {
	return &DirSource{fs: fs, root: root}
}

func (d *DirSource) Location() string { return d.root }

func (d *DirSource) full(rel string) string {
	return filepath.Join(d.root, filepath.FromSlash(rel))
}

func (d *DirSource) Exists(rel string) (bool, error) {
	return d.fs.Exists(d.full(rel))
}

func (d *DirSource) IsDir(rel string) (bool, error) {
	return d.fs.IsDir(d.full(rel))
}

func (d *DirSource) Read(rel string) ([]byte, error) {
	return d.fs.ReadFile(d.full(rel))
}

// ArchiveReader is the part of the archive codec the validator uses.
type ArchiveReader interface {
	List(data []byte) ([]archive.Entry, error)
	ExtractText(data []byte, name string) (string, error)
}

// ArchiveSource validates archive bytes entry by entry without extracting
// the whole archive.
type ArchiveSource struct {
	codec    ArchiveReader
	data     []byte
	location string
	entries  []archive.Entry
	index    map[string]bool
}

// NewArchiveSource lists the archive once and serves existence checks from
// that listing.
func NewArchiveSource(codec ArchiveReader, data []byte, location string) (*ArchiveSource, error) {
	entries, err := codec.List(data)
	if err != nil {
		return nil, err
	}
	index := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir {
			index[e.Path] = true
		}
	}
	return &ArchiveSource{
		codec:    codec,
		data:     data,
		location: location,
		entries:  entries,
		index:    index,
	}, nil
}

func (a *ArchiveSource) Location() string { return a.location }

func (a *ArchiveSource) Exists(rel string) (bool, error) {
	if a.index[rel] {
		return true, nil
	}
	return a.IsDir(rel)
}

func (a *ArchiveSource) IsDir(rel string) (bool, error) {
	prefix := strings.TrimSuffix(rel, "/") + "/"
	for _, e := range a.entries {
		if strings.HasPrefix(e.Path, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (a *ArchiveSource) Read(rel string) ([]byte, error) {
	if !a.index[rel] {
		return nil, &fs.PathError{Op: "read", Path: rel, Err: fs.ErrNotExist}
	}
	text, err := a.codec.ExtractText(a.data, rel)
	if err != nil {
		return nil, fmt.Errorf("error extracting %s: %w", rel, err)
	}
	return []byte(text), nil
}

// Entries returns the archive listing in archive order.
func (a *ArchiveSource) Entries() []archive.Entry {
	return a.entries
}

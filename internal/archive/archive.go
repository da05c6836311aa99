// Package archive is the zip codec behind card archives.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrEntryNotFound is returned by ExtractText when the archive has no such entry.
var ErrEntryNotFound = errors.New("entry not found in archive")

// File is one entry to write.
type File struct {
	Path    string
	Content []byte
}

// Entry describes one entry of an existing archive.
type Entry struct {
	Path           string
	Size           int64
	CompressedSize int64
	Stored         bool
	IsDir          bool
	Modified       time.Time
}

// CreateOptions controls archive creation.
type CreateOptions struct {
	// Store writes entries without compression.
	Store bool
	// Modified is stamped on every entry. Zero means time.Now().
	Modified time.Time
}

// ExtractOptions restricts extraction to the listed entry paths when non-empty.
type ExtractOptions struct {
	Files []string
}

// Zip implements the archive codec over archive/zip.
type Zip struct{}

// NewZip returns a zip codec.
func NewZip() *Zip {
	return &Zip{}
}

// Create writes files in the given order.
func (z *Zip) Create(files []File, opts CreateOptions) ([]byte, error) {
	modified := opts.Modified
	if modified.IsZero() {
		modified = time.Now()
	}
	method := zip.Deflate
	if opts.Store {
		method = zip.Store
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if f.Path == "" {
			return nil, fmt.Errorf("archive entry with empty path")
		}
		if seen[f.Path] {
			return nil, fmt.Errorf("duplicate archive entry: %s", f.Path)
		}
		seen[f.Path] = true

		header := &zip.FileHeader{
			Name:     f.Path,
			Method:   method,
			Modified: modified,
		}
		header.SetMode(0o644)
		fw, err := w.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("error creating entry %s: %w", f.Path, err)
		}
		if _, err := fw.Write(f.Content); err != nil {
			return nil, fmt.Errorf("error writing entry %s: %w", f.Path, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("error finalizing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Extract returns the content of every regular entry keyed by its raw path.
// Entry names are not sanitised here.
func (z *Zip) Extract(data []byte, opts ExtractOptions) (map[string][]byte, error) {
	r, err := openReader(data)
	if err != nil {
		return nil, err
	}

	var want map[string]bool
	if len(opts.Files) > 0 {
		want = make(map[string]bool, len(opts.Files))
		for _, name := range opts.Files {
			want[name] = true
		}
	}

	out := make(map[string][]byte)
	for _, f := range r.File {
		if isDirEntry(f) {
			continue
		}
		if want != nil && !want[f.Name] {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		out[f.Name] = content
	}
	return out, nil
}

// List returns the entries in archive order.
func (z *Zip) List(data []byte) ([]Entry, error) {
	r, err := openReader(data)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, Entry{
			Path:           f.Name,
			Size:           int64(f.UncompressedSize64),
			CompressedSize: int64(f.CompressedSize64),
			Stored:         f.Method == zip.Store,
			IsDir:          isDirEntry(f),
			Modified:       f.Modified,
		})
	}
	return entries, nil
}

// Validate reports whether data is a readable zip archive.
func (z *Zip) Validate(data []byte) bool {
	_, err := openReader(data)
	return err == nil
}

// ExtractText reads a single entry as text without touching the others.
func (z *Zip) ExtractText(data []byte, name string) (string, error) {
	r, err := openReader(data)
	if err != nil {
		return "", err
	}
	for _, f := range r.File {
		if f.Name != name || isDirEntry(f) {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			return "", err
		}
		return string(content), nil
	}
	return "", fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// openReader tolerates zip.ErrInsecurePath; path checks belong to the caller
// that decides where entries are written.
func openReader(data []byte) (*zip.Reader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("not a zip archive: empty input")
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("not a zip archive: %w", err)
	}
	return r, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("error reading entry %s: %w", f.Name, err)
	}
	return content, nil
}

func isDirEntry(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

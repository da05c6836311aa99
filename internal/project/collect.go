package project

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/fsys"
)

// ErrResourceTooLarge is returned when a file exceeds CollectOptions.MaxResourceSize.
var ErrResourceTooLarge = errors.New("resource exceeds maximum size")

// ErrInvalidPattern is returned for malformed exclude patterns.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// File is one collected project file.
type File struct {
	Path    string // forward-slash path relative to the project root
	Content []byte
}

// CollectOptions controls which files end up in an archive.
type CollectOptions struct {
	// IncludeHidden keeps dot files and dot directories. The config
	// directory is always included.
	IncludeHidden bool
	// Exclude holds doublestar patterns matched against relative paths.
	Exclude []string
	// MaxResourceSize rejects larger files. Zero disables the limit.
	MaxResourceSize int64
}

// Validate checks that every exclude pattern is well formed.
func (o CollectOptions) Validate() error {
	for _, p := range o.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %s", ErrInvalidPattern, p)
		}
	}
	return nil
}

// Collect walks root depth-first and returns its files in archive order.
func Collect(fs fsys.FS, root string, opts CollectOptions) ([]File, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var files []File
	if err := collectDir(fs, root, "", opts, &files); err != nil {
		return nil, err
	}
	Sort(files)
	return files, nil
}

func collectDir(fs fsys.FS, root, rel string, opts CollectOptions, files *[]File) error {
	entries, err := fs.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("error reading directory %s: %w", displayPath(rel), err)
	}

	for _, entry := range entries {
		childRel := path.Join(rel, entry.Name)
		if skip(childRel, entry.Name, opts) {
			continue
		}

		if entry.IsDir {
			if err := collectDir(fs, root, childRel, opts, files); err != nil {
				return err
			}
			continue
		}
		if !entry.Mode.IsRegular() {
			continue
		}

		if opts.MaxResourceSize > 0 && entry.Size > opts.MaxResourceSize {
			return fmt.Errorf("%w: %s is %d bytes (limit %d)",
				ErrResourceTooLarge, childRel, entry.Size, opts.MaxResourceSize)
		}

		content, err := fs.ReadFile(filepath.Join(root, filepath.FromSlash(childRel)))
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", childRel, err)
		}
		*files = append(*files, File{Path: childRel, Content: content})
	}
	return nil
}

func skip(rel, name string, opts CollectOptions) bool {
	if rel == card.ConfigDir {
		return false
	}
	inConfig := strings.HasPrefix(rel, card.ConfigDir+"/")

	if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if inConfig {
		return false
	}
	for _, pattern := range opts.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

// Rank orders paths into archive groups: the metadata document, then the
// rest of the config directory, then everything else.
func Rank(p string) int {
	switch {
	case p == card.MetadataPath:
		return 0
	case strings.HasPrefix(p, card.ConfigDir+"/"):
		return 1
	default:
		return 2
	}
}

// Less reports whether path a sorts before path b in an archive.
func Less(a, b string) bool {
	ra, rb := Rank(a), Rank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

// Sort puts files into archive order.
func Sort(files []File) {
	sort.SliceStable(files, func(i, j int) bool {
		return Less(files[i].Path, files[j].Path)
	})
}

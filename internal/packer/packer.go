// Package packer turns card projects into card archives and back.
//
// A Packer carries only its collaborators, so one instance can serve
// concurrent calls on distinct paths. Calls that target the same archive or
// the same unpack directory are not coordinated; the last writer wins.
package packer

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/arcanaland/cardpack/internal/archive"
	"github.com/arcanaland/cardpack/internal/fsys"
)

// Codec is the archive codec the packer drives.
type Codec interface {
	Create(files []archive.File, opts archive.CreateOptions) ([]byte, error)
	Extract(data []byte, opts archive.ExtractOptions) (map[string][]byte, error)
	List(data []byte) ([]archive.Entry, error)
	Validate(data []byte) bool
	ExtractText(data []byte, name string) (string, error)
}

// Packer packs, unpacks and validates card projects.
type Packer struct {
	fs       fsys.FS
	codec    Codec
	logger   *log.Logger
	progress ProgressFunc
	now      func() time.Time
}

// Option configures a Packer.
type Option func(*Packer)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *log.Logger) Option {
	return func(p *Packer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithProgress registers a callback invoked between steps.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Packer) { p.progress = fn }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Packer) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Packer over the given filesystem and archive codec.
func New(fs fsys.FS, codec Codec, opts ...Option) *Packer {
	p := &Packer{
		fs:     fs,
		codec:  codec,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PackOptions controls Pack.
type PackOptions struct {
	Validate        bool
	Checksum        bool
	IncludeHidden   bool
	Exclude         []string
	MaxResourceSize int64
}

// DefaultPackOptions validates the project and skips the checksum.
func DefaultPackOptions() PackOptions {
	return PackOptions{Validate: true}
}

// UnpackOptions controls Unpack.
type UnpackOptions struct {
	Overwrite bool
	Validate  bool
}

// DefaultUnpackOptions refuses to overwrite and validates the result.
func DefaultUnpackOptions() UnpackOptions {
	return UnpackOptions{Validate: true}
}

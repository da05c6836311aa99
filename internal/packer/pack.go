package packer

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/arcanaland/cardpack/internal/archive"
	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/fsys"
	"github.com/arcanaland/cardpack/internal/project"
	"github.com/arcanaland/cardpack/internal/validator"
)

// PackResult describes a written archive.
type PackResult struct {
	Success    bool          `json:"success"`
	OutputPath string        `json:"output_path"`
	FileSize   int64         `json:"file_size"`
	FileCount  int           `json:"file_count"`
	Duration   time.Duration `json:"duration"`
	Checksum   string        `json:"checksum,omitempty"`
}

// Pack writes sourceDir as a card archive at targetPath. Entries are always
// stored uncompressed with the config directory first and metadata.yaml
// leading it. The metadata document in the archive gets a fresh modified_at
// and file_info; sourceDir itself is never modified.
func (p *Packer) Pack(sourceDir, targetPath string, opts PackOptions) (*PackResult, error) {
	const op = "pack"
	start := p.now()

	if err := p.requireDir(op, sourceDir); err != nil {
		return nil, err
	}

	if opts.Validate {
		if err := p.report(Progress{Stage: StageValidate, Path: sourceDir}); err != nil {
			return nil, err
		}
		report := validator.NewValidator(validator.NewDirSource(p.fs, sourceDir), validator.Options{
			Level: validator.LevelFull,
		}).Validate()
		if !report.Valid {
			failures := report.Failures(validator.SeverityError)
			e := newError(KindInvalidFormat, op, sourceDir, "card project failed validation", nil)
			e.Details = validator.Messages(failures)
			p.logger.Debug("validation failed", "source", sourceDir, "errors", len(failures))
			return nil, e
		}
	}

	if err := p.report(Progress{Stage: StageCollect, Path: sourceDir}); err != nil {
		return nil, err
	}
	files, err := project.Collect(p.fs, sourceDir, project.CollectOptions{
		IncludeHidden:   opts.IncludeHidden,
		Exclude:         append(selfExclude(sourceDir, targetPath), opts.Exclude...),
		MaxResourceSize: opts.MaxResourceSize,
	})
	if err != nil {
		if errors.Is(err, project.ErrResourceTooLarge) || errors.Is(err, project.ErrInvalidPattern) {
			return nil, newError(KindInvalidFormat, op, sourceDir, "", err)
		}
		return nil, newError(KindReadError, op, sourceDir, "", err)
	}
	p.logger.Debug("collected files", "source", sourceDir, "count", len(files))

	checksum := ""
	if opts.Checksum {
		if err := p.report(Progress{Stage: StageChecksum, Total: len(files)}); err != nil {
			return nil, err
		}
		checksum = Checksum(files)
	}

	if err := p.stampMetadata(op, sourceDir, files, checksum); err != nil {
		return nil, err
	}

	if err := p.report(Progress{Stage: StageArchive, Total: len(files)}); err != nil {
		return nil, err
	}
	entries := make([]archive.File, len(files))
	for i, f := range files {
		entries[i] = archive.File{Path: f.Path, Content: f.Content}
	}
	data, err := p.codec.Create(entries, archive.CreateOptions{Store: true, Modified: start})
	if err != nil {
		return nil, newError(KindWriteError, op, targetPath, "error creating archive", err)
	}

	if err := p.report(Progress{Stage: StageWrite, Path: targetPath}); err != nil {
		return nil, err
	}
	if err := p.fs.Mkdir(filepath.Dir(targetPath), true); err != nil {
		return nil, newError(KindWriteError, op, targetPath, "error creating parent directory", err)
	}
	if err := p.fs.WriteFile(targetPath, data); err != nil {
		return nil, newError(KindWriteError, op, targetPath, "", err)
	}

	result := &PackResult{
		Success:    true,
		OutputPath: targetPath,
		FileSize:   int64(len(data)),
		FileCount:  len(files),
		Duration:   p.now().Sub(start),
		Checksum:   checksum,
	}
	p.logger.Debug("packed card", "output", targetPath, "files", result.FileCount, "bytes", result.FileSize)
	return result, nil
}

func (p *Packer) requireDir(op, dir string) error {
	exists, err := p.fs.Exists(dir)
	if err != nil {
		return newError(KindReadError, op, dir, "", err)
	}
	if !exists {
		return newError(KindNotFound, op, dir, "source directory not found", nil)
	}
	isDir, err := p.fs.IsDir(dir)
	if err != nil {
		return newError(KindReadError, op, dir, "", err)
	}
	if !isDir {
		return newError(KindInvalidFormat, op, dir, "source is not a directory", nil)
	}
	return nil
}

// stampMetadata rewrites the metadata document in place within files.
func (p *Packer) stampMetadata(op, sourceDir string, files []project.File, checksum string) error {
	if len(files) == 0 || files[0].Path != card.MetadataPath {
		p.logger.Warn("no metadata document; packing without file_info", "source", sourceDir)
		return nil
	}

	var total int64
	for _, f := range files {
		total += int64(len(f.Content))
	}
	stamp := p.now().UTC().Format(time.RFC3339)

	rewritten, err := card.RewriteMetadata(files[0].Content, stamp, card.FileInfo{
		TotalSize:   total,
		FileCount:   len(files),
		Checksum:    checksum,
		GeneratedAt: stamp,
	})
	if err != nil {
		return newError(KindInvalidFormat, op, card.MetadataPath, "", err)
	}
	files[0].Content = rewritten
	return nil
}

// selfExclude keeps an archive written inside its own project out of the
// next pack.
func selfExclude(sourceDir, targetPath string) []string {
	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil
	}
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return nil
	}
	rel, err := fsys.Relative(absSource, absTarget)
	if err != nil || rel == "." || strings.HasPrefix(rel, "../") {
		return nil
	}
	return []string{escapeGlob(rel)}
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "{", `\{`)
	return r.Replace(s)
}

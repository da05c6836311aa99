package packer

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/arcanaland/cardpack/internal/archive"
	"github.com/arcanaland/cardpack/internal/project"
	"github.com/arcanaland/cardpack/internal/validator"
)

// Warning is a non-fatal problem met while unpacking.
type Warning struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// UnpackResult describes an extracted project.
type UnpackResult struct {
	Success    bool              `json:"success"`
	OutputDir  string            `json:"output_dir"`
	FileCount  int               `json:"file_count"`
	Duration   time.Duration     `json:"duration"`
	Warnings   []Warning         `json:"warnings,omitempty"`
	Validation *validator.Report `json:"validation,omitempty"`
}

// Unpack extracts the archive at archivePath into targetDir.
func (p *Packer) Unpack(archivePath, targetDir string, opts UnpackOptions) (*UnpackResult, error) {
	const op = "unpack"
	start := p.now()

	data, err := p.readArchive(op, archivePath)
	if err != nil {
		return nil, err
	}
	return p.unpack(op, archivePath, data, targetDir, opts, start)
}

// UnpackBytes extracts archive bytes into targetDir.
func (p *Packer) UnpackBytes(data []byte, targetDir string, opts UnpackOptions) (*UnpackResult, error) {
	return p.unpack("unpack", "", data, targetDir, opts, p.now())
}

func (p *Packer) unpack(op, source string, data []byte, targetDir string, opts UnpackOptions, start time.Time) (*UnpackResult, error) {
	exists, err := p.fs.Exists(targetDir)
	if err != nil {
		return nil, newError(KindReadError, op, targetDir, "", err)
	}
	if exists && !opts.Overwrite {
		return nil, newError(KindAlreadyExists, op, targetDir, "target directory already exists", nil)
	}

	if !p.codec.Validate(data) {
		return nil, newError(KindInvalidFormat, op, source, "not a valid card archive", nil)
	}
	files, err := p.codec.Extract(data, archive.ExtractOptions{})
	if err != nil {
		return nil, newError(KindInvalidFormat, op, source, "error extracting archive", err)
	}

	if exists {
		p.logger.Debug("removing existing target", "target", targetDir)
		if err := p.fs.Rmdir(targetDir, true); err != nil {
			return nil, newError(KindWriteError, op, targetDir, "error removing existing target", err)
		}
	}
	if err := p.fs.Mkdir(targetDir, true); err != nil {
		return nil, newError(KindWriteError, op, targetDir, "", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return project.Less(names[i], names[j]) })

	result := &UnpackResult{OutputDir: targetDir}
	for i, name := range names {
		dest, err := SafeJoin(targetDir, name)
		if err != nil {
			p.logger.Warn("skipping archive entry", "entry", name, "err", err)
			result.Warnings = append(result.Warnings, Warning{
				Code:    KindPathSecurityViolation.Code(),
				Path:    name,
				Message: err.Error(),
			})
			continue
		}

		if err := p.report(Progress{Stage: StageExtract, Current: i + 1, Total: len(names), Path: name}); err != nil {
			return nil, err
		}
		if err := p.fs.Mkdir(filepath.Dir(dest), true); err != nil {
			return nil, newError(KindWriteError, op, dest, "", err)
		}
		if err := p.fs.WriteFile(dest, files[name]); err != nil {
			return nil, newError(KindWriteError, op, dest, "", err)
		}
		result.FileCount++
	}

	if opts.Validate {
		if err := p.report(Progress{Stage: StageValidate, Path: targetDir}); err != nil {
			return nil, err
		}
		report := validator.NewValidator(validator.NewDirSource(p.fs, targetDir), validator.Options{
			Level: validator.LevelFull,
		}).Validate()
		result.Validation = &report
	}

	result.Success = true
	result.Duration = p.now().Sub(start)
	p.logger.Debug("unpacked card", "target", targetDir, "files", result.FileCount, "skipped", len(result.Warnings))
	return result, nil
}

// readArchive loads archive bytes, failing with KindNotFound when absent.
func (p *Packer) readArchive(op, archivePath string) ([]byte, error) {
	exists, err := p.fs.Exists(archivePath)
	if err != nil {
		return nil, newError(KindReadError, op, archivePath, "", err)
	}
	if !exists {
		return nil, newError(KindNotFound, op, archivePath, "archive not found", nil)
	}
	data, err := p.fs.ReadFile(archivePath)
	if err != nil {
		return nil, readError(op, archivePath, err)
	}
	return data, nil
}

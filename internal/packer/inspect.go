package packer

import (
	"fmt"

	"github.com/arcanaland/cardpack/internal/archive"
	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/project"
	"github.com/arcanaland/cardpack/internal/validator"
)

// Validate checks a project directory or a card archive. It always returns
// a report; problems reading path become a failing check.
func (p *Packer) Validate(path string, opts validator.Options) validator.Report {
	exists, err := p.fs.Exists(path)
	if err != nil {
		return validator.Failed(path, opts.Level, "validation.error", fmt.Sprintf("error checking %s: %v", path, err))
	}
	if !exists {
		return validator.Failed(path, opts.Level, "validation.error", fmt.Sprintf("%s not found", path))
	}

	isDir, err := p.fs.IsDir(path)
	if err != nil {
		return validator.Failed(path, opts.Level, "validation.error", fmt.Sprintf("error checking %s: %v", path, err))
	}
	if isDir {
		return validator.NewValidator(validator.NewDirSource(p.fs, path), opts).Validate()
	}

	data, err := p.fs.ReadFile(path)
	if err != nil {
		return validator.Failed(path, opts.Level, "validation.error", fmt.Sprintf("error reading %s: %v", path, err))
	}
	return p.ValidateArchive(data, path, opts)
}

// ValidateArchive checks archive bytes without extracting them to disk.
func (p *Packer) ValidateArchive(data []byte, location string, opts validator.Options) validator.Report {
	if !p.codec.Validate(data) {
		return validator.Failed(location, opts.Level, "archive.format", "not a valid card archive")
	}
	src, err := validator.NewArchiveSource(p.codec, data, location)
	if err != nil {
		return validator.Failed(location, opts.Level, "archive.format", err.Error())
	}
	return validator.NewValidator(src, opts).Validate()
}

// GetMetadata reads only the metadata entry of an archive.
func (p *Packer) GetMetadata(archivePath string) (*card.Metadata, error) {
	const op = "metadata"

	data, err := p.readArchive(op, archivePath)
	if err != nil {
		return nil, err
	}
	if !p.codec.Validate(data) {
		return nil, newError(KindInvalidFormat, op, archivePath, "not a valid card archive", nil)
	}
	text, err := p.codec.ExtractText(data, card.MetadataPath)
	if err != nil {
		return nil, newError(KindReadError, op, archivePath, "error reading "+card.MetadataPath, err)
	}
	metadata, err := card.ParseMetadata([]byte(text))
	if err != nil {
		return nil, newError(KindReadError, op, archivePath, "", err)
	}
	return metadata, nil
}

// ChecksumResult compares a recorded checksum with a recomputed one.
type ChecksumResult struct {
	Recorded string `json:"recorded"`
	Actual   string `json:"actual"`
	Match    bool   `json:"match"`
}

// VerifyChecksum recomputes the checksum of an archive in archive order and
// compares it with metadata's file_info.checksum.
func (p *Packer) VerifyChecksum(archivePath string) (*ChecksumResult, error) {
	const op = "verify"

	metadata, err := p.GetMetadata(archivePath)
	if err != nil {
		return nil, err
	}
	if metadata.FileInfo == nil || metadata.FileInfo.Checksum == "" {
		return nil, newError(KindInvalidFormat, op, archivePath, "archive carries no checksum", nil)
	}

	data, err := p.readArchive(op, archivePath)
	if err != nil {
		return nil, err
	}
	entries, err := p.codec.List(data)
	if err != nil {
		return nil, newError(KindInvalidFormat, op, archivePath, "", err)
	}
	contents, err := p.codec.Extract(data, archive.ExtractOptions{})
	if err != nil {
		return nil, newError(KindInvalidFormat, op, archivePath, "", err)
	}

	files := make([]project.File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		files = append(files, project.File{Path: e.Path, Content: contents[e.Path]})
	}

	actual := Checksum(files)
	return &ChecksumResult{
		Recorded: metadata.FileInfo.Checksum,
		Actual:   actual,
		Match:    actual == metadata.FileInfo.Checksum,
	}, nil
}

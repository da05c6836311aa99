package validator

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime/debug"
	"strings"

	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/project"
)

// Options controls a validation run.
type Options struct {
	Level Level
}

// Validator runs the card checks against one source.
type Validator struct {
	Source  Source
	Level   Level
	Results Report

	structure       *card.Structure
	structureLoaded bool
}

// NewValidator creates a validator for src. An empty level means LevelFull.
func NewValidator(src Source, opts Options) *Validator {
	level := opts.Level
	if level == "" {
		level = LevelFull
	}
	return &Validator{
		Source: src,
		Level:  level,
		Results: Report{
			Source: src.Location(),
			Level:  level,
		},
	}
}

// Validate runs every check the level selects. Unexpected read failures and
// panics are recorded as a single failing check instead of being returned.
func (v *Validator) Validate() (report Report) {
	defer func() {
		if r := recover(); r != nil {
			v.internalFailure(fmt.Errorf("panic during validation: %v\n%s", r, debug.Stack()))
		}
		v.Results.finish()
		report = v.Results
	}()

	steps := []struct {
		level Level
		run   func() error
	}{
		{LevelDirectory, v.validateDirectoryStructure},
		{LevelFile, v.validateConfigFiles},
		{LevelFile, v.validateArchiveLayout},
		{LevelReference, v.validateReferences},
		{LevelReference, v.validateManifest},
	}
	for _, step := range steps {
		if !v.Level.includes(step.level) {
			continue
		}
		if err := step.run(); err != nil {
			v.internalFailure(err)
			break
		}
	}
	return v.Results
}

func (v *Validator) internalFailure(err error) {
	v.Results.fail("validation.error", CategoryFile, SeverityError, "",
		"validation aborted: %v", err)
}

// validateDirectoryStructure checks the config and content directories
func (v *Validator) validateDirectoryStructure() error {
	ok, err := v.Source.IsDir(card.ConfigDir)
	if err != nil {
		return fmt.Errorf("error checking %s: %w", card.ConfigDir, err)
	}
	if ok {
		v.Results.pass("directory.card", CategoryDirectory, card.ConfigDir)
	} else {
		v.Results.fail("directory.card", CategoryDirectory, SeverityError, card.ConfigDir,
			"%s directory not found", card.ConfigDir)
	}

	ok, err = v.Source.IsDir(card.ContentDir)
	if err != nil {
		return fmt.Errorf("error checking %s: %w", card.ContentDir, err)
	}
	if ok {
		v.Results.pass("directory.content", CategoryDirectory, card.ContentDir)
	} else {
		v.Results.fail("directory.content", CategoryDirectory, SeverityInfo, card.ContentDir,
			"%s directory not found", card.ContentDir)
	}
	return nil
}

// validateConfigFiles checks required documents and that every present
// config document parses
func (v *Validator) validateConfigFiles() error {
	required := []struct {
		name string
		path string
	}{
		{"metadata", card.MetadataPath},
		{"structure", card.StructurePath},
	}

	for _, doc := range required {
		data, found, err := v.read(doc.path)
		if err != nil {
			return err
		}
		if !found {
			v.Results.fail("file."+doc.name, CategoryFile, SeverityError, doc.path,
				"required file %s not found", doc.path)
			continue
		}
		v.Results.pass("file."+doc.name, CategoryFile, doc.path)

		switch doc.name {
		case "metadata":
			v.checkMetadata(data)
		case "structure":
			v.checkStructure(data)
		}
	}

	data, found, err := v.read(card.ThemePath)
	if err != nil {
		return err
	}
	if found {
		var theme map[string]any
		if err := card.Parse(data, &theme); err != nil {
			v.Results.fail("format.theme", CategoryFormat, SeverityError, card.ThemePath,
				"error parsing %s: %v", card.ThemeFile, err)
		} else {
			v.Results.pass("format.theme", CategoryFormat, card.ThemePath)
		}
	}
	return nil
}

// checkMetadata separates YAML syntax (format.metadata) from field types and
// constraints (metadata.schema), so a typed decode never hides a schema
// violation.
func (v *Validator) checkMetadata(data []byte) {
	var doc any
	if err := card.Parse(data, &doc); err != nil {
		v.Results.fail("format.metadata", CategoryFormat, SeverityError, card.MetadataPath,
			"error parsing %s: %v", card.MetadataFile, err)
		return
	}
	v.Results.pass("format.metadata", CategoryFormat, card.MetadataPath)

	problems, err := validateMetadataSchema(data)
	switch {
	case err != nil:
		v.Results.fail("metadata.schema", CategoryFormat, SeverityError, card.MetadataPath,
			"schema check failed: %v", err)
	case len(problems) > 0:
		v.Results.fail("metadata.schema", CategoryFormat, SeverityError, card.MetadataPath,
			"%s", strings.Join(problems, "; "))
	default:
		if _, err := card.ParseMetadata(data); err != nil {
			v.Results.fail("metadata.schema", CategoryFormat, SeverityError, card.MetadataPath, "%v", err)
			return
		}
		v.Results.pass("metadata.schema", CategoryFormat, card.MetadataPath)
	}
}

func (v *Validator) checkStructure(data []byte) {
	s, err := card.ParseStructure(data)
	v.structureLoaded = true
	if err != nil {
		v.Results.fail("format.structure", CategoryFormat, SeverityError, card.StructurePath, "%v", err)
		return
	}
	v.structure = s
	v.Results.pass("format.structure", CategoryFormat, card.StructurePath)
}

// validateArchiveLayout checks entry order and compression of archive sources
func (v *Validator) validateArchiveLayout() error {
	src, ok := v.Source.(*ArchiveSource)
	if !ok {
		return nil
	}

	var files []string
	stored := true
	for _, e := range src.Entries() {
		if e.IsDir {
			continue
		}
		files = append(files, e.Path)
		if !e.Stored || e.CompressedSize != e.Size {
			stored = false
			v.Results.fail("archive.store", CategoryFormat, SeverityError, e.Path,
				"entry %s is compressed; card archives must use store mode", e.Path)
		}
	}
	if stored {
		v.Results.pass("archive.store", CategoryFormat, "")
	}

	if len(files) > 0 && files[0] != card.MetadataPath {
		v.Results.fail("archive.order", CategoryFormat, SeverityError, files[0],
			"first entry is %s, expected %s", files[0], card.MetadataPath)
		return nil
	}
	for i := 1; i < len(files); i++ {
		if project.Rank(files[i]) < project.Rank(files[i-1]) {
			v.Results.fail("archive.order", CategoryFormat, SeverityError, files[i],
				"%s appears after %s; config entries must come first", files[i], files[i-1])
			return nil
		}
	}
	v.Results.pass("archive.order", CategoryFormat, "")
	return nil
}

// loadStructure parses the structure document when the file level did not
func (v *Validator) loadStructure() (*card.Structure, error) {
	if v.structureLoaded {
		return v.structure, nil
	}
	v.structureLoaded = true

	data, found, err := v.read(card.StructurePath)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s, err := card.ParseStructure(data)
	if err != nil {
		return nil, nil
	}
	v.structure = s
	return s, nil
}

// validateReferences cross-checks every structure entry against its content document
func (v *Validator) validateReferences() error {
	s, err := v.loadStructure()
	if err != nil {
		return err
	}
	if s == nil {
		if !v.Level.includes(LevelFile) {
			v.Results.fail("structure", CategoryReference, SeverityError, card.StructurePath,
				"structure document missing or unreadable; references not checked")
		}
		return nil
	}

	seen := make(map[string]bool, len(s.Structure))
	for i, ref := range s.Structure {
		if ref.ID == "" {
			v.Results.fail(fmt.Sprintf("structure.%d.id", i), CategoryReference, SeverityError,
				card.StructurePath, "structure entry %d has no id", i)
			continue
		}
		if strings.ContainsAny(ref.ID, `/\`) || strings.Contains(ref.ID, "..") {
			v.Results.fail(fmt.Sprintf("structure.%d.id", i), CategoryReference, SeverityError,
				card.StructurePath, "structure entry %d has an invalid id %q", i, ref.ID)
			continue
		}
		if seen[ref.ID] {
			v.Results.fail(fmt.Sprintf("structure.%s.duplicate", ref.ID), CategoryReference, SeverityError,
				card.StructurePath, "base card %s is referenced more than once", ref.ID)
			continue
		}
		seen[ref.ID] = true

		if err := v.validateReference(ref); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateReference(ref card.BaseCardReference) error {
	prefix := "content." + ref.ID
	contentPath := card.ContentPath(ref.ID)

	data, found, err := v.read(contentPath)
	if err != nil {
		return err
	}
	if !found {
		v.Results.fail(prefix, CategoryReference, SeverityWarning, contentPath,
			"content document for base card %s not found", ref.ID)
		return nil
	}
	v.Results.pass(prefix, CategoryReference, contentPath)

	content, err := card.ParseContent(data)
	if err != nil {
		v.Results.fail(prefix+".format", CategoryReference, SeverityError, contentPath,
			"error parsing %s: %v", contentPath, err)
		return nil
	}

	if content.Type == "" {
		v.Results.fail(prefix+".declared_type", CategoryReference, SeverityError, contentPath,
			"content of base card %s has no type", ref.ID)
	} else if content.Type != ref.Type {
		v.Results.fail(prefix+".type", CategoryReference, SeverityError, contentPath,
			"type mismatch: structure declares %q, content declares %q", ref.Type, content.Type)
	} else {
		v.Results.pass(prefix+".type", CategoryReference, contentPath)
	}

	if _, ok := content.DataObject(); !ok {
		v.Results.fail(prefix+".data", CategoryReference, SeverityError, contentPath,
			"content of base card %s must have a data object", ref.ID)
	} else {
		v.Results.pass(prefix+".data", CategoryReference, contentPath)
	}
	return nil
}

// validateManifest compares the declared manifest with the structure
func (v *Validator) validateManifest() error {
	s, err := v.loadStructure()
	if err != nil || s == nil || s.Manifest == nil {
		return err
	}
	m := s.Manifest

	if m.CardCount != len(s.Structure) {
		v.Results.fail("manifest.card_count", CategoryReference, SeverityWarning, card.StructurePath,
			"manifest declares %d cards, structure lists %d", m.CardCount, len(s.Structure))
	} else {
		v.Results.pass("manifest.card_count", CategoryReference, card.StructurePath)
	}

	if len(m.Resources) > 0 && m.ResourceCount != len(m.Resources) {
		v.Results.fail("manifest.resource_count", CategoryReference, SeverityWarning, card.StructurePath,
			"manifest declares %d resources, lists %d", m.ResourceCount, len(m.Resources))
	}
	for _, res := range m.Resources {
		ok, err := v.Source.Exists(res)
		if err != nil {
			return fmt.Errorf("error checking resource %s: %w", res, err)
		}
		if !ok {
			v.Results.fail("manifest.resource", CategoryReference, SeverityWarning, res,
				"manifest resource %s not found", res)
		}
	}
	return nil
}

// read returns (nil, false, nil) for absent files and an error only for
// unexpected failures.
func (v *Validator) read(rel string) ([]byte, bool, error) {
	ok, err := v.Source.Exists(rel)
	if err != nil {
		return nil, false, fmt.Errorf("error checking %s: %w", rel, err)
	}
	if !ok {
		return nil, false, nil
	}
	data, err := v.Source.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading %s: %w", rel, err)
	}
	return data, true, nil
}

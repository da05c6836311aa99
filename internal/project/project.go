// Package project reads, walks and scaffolds card project directories.
package project

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/fsys"
)

// Project represents a card project directory
type Project struct {
	Path      string
	Metadata  *card.Metadata
	Structure *card.Structure
}

// Load loads the config documents of a card project directory
func Load(fs fsys.FS, dir string) (*Project, error) {
	metadataPath := filepath.Join(dir, filepath.FromSlash(card.MetadataPath))
	if ok, _ := fs.Exists(metadataPath); !ok {
		return nil, fmt.Errorf("%s not found in %s", card.MetadataPath, dir)
	}
	data, err := fs.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", card.MetadataPath, err)
	}
	metadata, err := card.ParseMetadata(data)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Path:     dir,
		Metadata: metadata,
	}

	structurePath := filepath.Join(dir, filepath.FromSlash(card.StructurePath))
	if ok, _ := fs.Exists(structurePath); ok {
		data, err := fs.ReadFile(structurePath)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", card.StructurePath, err)
		}
		if p.Structure, err = card.ParseStructure(data); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Content loads the content document of one base card
func (p *Project) Content(fs fsys.FS, baseCardID string) (*card.Content, error) {
	data, err := fs.ReadFile(filepath.Join(p.Path, filepath.FromSlash(card.ContentPath(baseCardID))))
	if err != nil {
		return nil, fmt.Errorf("error reading content %s: %w", baseCardID, err)
	}
	return card.ParseContent(data)
}

// Scaffold writes a minimal valid card project into dir and returns its metadata.
// It refuses to touch a directory that already holds a metadata document.
func Scaffold(fs fsys.FS, dir, name string, now time.Time) (*card.Metadata, error) {
	metadataPath := filepath.Join(dir, filepath.FromSlash(card.MetadataPath))
	if ok, _ := fs.Exists(metadataPath); ok {
		return nil, fmt.Errorf("card project already exists in %s", dir)
	}

	for _, sub := range []string{card.ConfigDir, card.ContentDir} {
		if err := fs.Mkdir(filepath.Join(dir, sub), true); err != nil {
			return nil, fmt.Errorf("error creating %s: %w", sub, err)
		}
	}

	stamp := now.UTC().Format(time.RFC3339)
	metadata := &card.Metadata{
		CardID:           card.NewID(),
		Name:             name,
		StandardsVersion: card.StandardsVersion,
		CreatedAt:        stamp,
		ModifiedAt:       stamp,
	}
	structure := &card.Structure{
		Structure: []card.BaseCardReference{},
		Manifest:  &card.Manifest{},
	}

	docs := []struct {
		rel string
		v   any
	}{
		{card.MetadataPath, metadata},
		{card.StructurePath, structure},
	}
	for _, doc := range docs {
		data, err := card.Stringify(doc.v)
		if err != nil {
			return nil, fmt.Errorf("error encoding %s: %w", doc.rel, err)
		}
		if err := fs.WriteFile(filepath.Join(dir, filepath.FromSlash(doc.rel)), data); err != nil {
			return nil, fmt.Errorf("error writing %s: %w", doc.rel, err)
		}
	}

	return metadata, nil
}

package card

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when a YAML document has no content.
var ErrEmptyDocument = errors.New("document is empty")

// Parse decodes a YAML document into v.
func Parse(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyDocument
	}
	return yaml.Unmarshal(data, v)
}

// Stringify encodes v as YAML with two-space indentation.
func Stringify(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseMetadata decodes .card/metadata.yaml
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := Parse(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", MetadataFile, err)
	}
	return &m, nil
}

// ParseStructure decodes .card/structure.yaml
func ParseStructure(data []byte) (*Structure, error) {
	var s Structure
	if err := Parse(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", StructureFile, err)
	}
	return &s, nil
}

// ParseContent decodes a base card content document.
func ParseContent(data []byte) (*Content, error) {
	var c Content
	if err := Parse(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// RewriteMetadata sets modified_at and file_info on an authored metadata
// document. Every other key keeps its position, style and comments.
func RewriteMetadata(src []byte, modifiedAt string, info FileInfo) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", MetadataFile, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("error parsing %s: %w", MetadataFile, ErrEmptyDocument)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s must be a mapping", MetadataFile)
	}

	setMappingValue(root, "modified_at", &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: modifiedAt,
		Style: yaml.DoubleQuotedStyle,
	})

	var infoNode yaml.Node
	if err := infoNode.Encode(info); err != nil {
		return nil, fmt.Errorf("error encoding file_info: %w", err)
	}
	setMappingValue(root, "file_info", &infoNode)

	return Stringify(&doc)
}

func setMappingValue(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

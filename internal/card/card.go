package card

// Project layout
const (
	ConfigDir     = ".card"
	ContentDir    = "content"
	MetadataFile  = "metadata.yaml"
	StructureFile = "structure.yaml"
	CoverFile     = "cover.html"
	ThemeFile     = "theme.yaml"

	MetadataPath  = ConfigDir + "/" + MetadataFile
	StructurePath = ConfigDir + "/" + StructureFile
	CoverPath     = ConfigDir + "/" + CoverFile
	ThemePath     = ConfigDir + "/" + ThemeFile
)

// StandardsVersion is the card format version this tool writes and understands.
const StandardsVersion = "1.0.0"

// ContentPath returns the project-relative path of a base card's content document.
func ContentPath(baseCardID string) string {
	return ContentDir + "/" + baseCardID + ".yaml"
}

// Metadata represents .card/metadata.yaml
type Metadata struct {
	CardID           string    `yaml:"card_id"`
	Name             string    `yaml:"name"`
	StandardsVersion string    `yaml:"standards_version,omitempty"`
	CreatedAt        string    `yaml:"created_at,omitempty"`
	ModifiedAt       string    `yaml:"modified_at,omitempty"`
	Description      string    `yaml:"description,omitempty"`
	Theme            string    `yaml:"theme,omitempty"`
	Tags             []string  `yaml:"tags,omitempty"`
	Visibility       string    `yaml:"visibility,omitempty"`
	License          string    `yaml:"license,omitempty"`
	AgeRating        string    `yaml:"age_rating,omitempty"`
	FileInfo         *FileInfo `yaml:"file_info,omitempty"`
}

// FileInfo is written by the packer and never authored by hand.
type FileInfo struct {
	TotalSize   int64  `yaml:"total_size"`
	FileCount   int    `yaml:"file_count"`
	Checksum    string `yaml:"checksum,omitempty"`
	GeneratedAt string `yaml:"generated_at"`
}

// BaseCardReference points at one content document by id and declared type.
type BaseCardReference struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// Manifest summarises the structure document.
type Manifest struct {
	CardCount     int      `yaml:"card_count"`
	ResourceCount int      `yaml:"resource_count"`
	Resources     []string `yaml:"resources,omitempty"`
}

// Structure represents .card/structure.yaml
type Structure struct {
	Structure []BaseCardReference `yaml:"structure"`
	Manifest  *Manifest           `yaml:"manifest,omitempty"`
}

// Content represents content/{id}.yaml
type Content struct {
	Type string `yaml:"type"`
	Data any    `yaml:"data"`
}

// DataObject returns the data field when it is a mapping.
func (c *Content) DataObject() (map[string]any, bool) {
	m, ok := c.Data.(map[string]any)
	return m, ok
}

package packer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/project"
)

// checksumSeparator joins the per-file lines before the final digest.
const checksumSeparator = "\n"

// Checksum digests files in the given order as sha256 over the lines
// "path:sha256(content)". The metadata document is left out because the
// result is written into it.
func Checksum(files []project.File) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		if f.Path == card.MetadataPath {
			continue
		}
		sum := sha256.Sum256(f.Content)
		lines = append(lines, f.Path+":"+hex.EncodeToString(sum[:]))
	}
	total := sha256.Sum256([]byte(strings.Join(lines, checksumSeparator)))
	return hex.EncodeToString(total[:])
}

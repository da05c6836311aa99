package packer

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// SafeJoin resolves an archive entry name below root. Absolute names, names
// that climb out of root and names that resolve to root itself are rejected
// with KindPathSecurityViolation.
func SafeJoin(root, name string) (string, error) {
	violation := func(reason string) error {
		return newError(KindPathSecurityViolation, "unpack", name,
			fmt.Sprintf("entry %s", reason), nil)
	}

	if name == "" || strings.ContainsRune(name, 0) {
		return "", violation("has an empty or binary name")
	}
	slashed := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(slashed) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", violation("is absolute")
	}

	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", violation("escapes the target directory")
	}

	base := filepath.Clean(root)
	dest := filepath.Join(base, filepath.FromSlash(clean))
	rel, err := filepath.Rel(base, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", violation("escapes the target directory")
	}
	return dest, nil
}

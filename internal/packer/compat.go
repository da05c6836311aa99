package packer

import (
	"fmt"
	"strconv"
	"strings"
)

// Compatibility is the outcome of CheckCompatibility.
type Compatibility struct {
	Compatible bool   `json:"compatible"`
	Reason     string `json:"reason,omitempty"`
}

type version struct {
	major, minor, patch int
}

// parseVersion reads major.minor.patch. Missing or non-numeric segments
// count as zero; input without any digit is rejected.
func parseVersion(s string) (version, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if !strings.ContainsAny(s, "0123456789") {
		return version{}, false
	}

	parts := strings.SplitN(s, ".", 3)
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			n = 0
		}
		nums[i] = n
	}
	return version{major: nums[0], minor: nums[1], patch: nums[2]}, true
}

// CheckCompatibility decides whether a card written for cardVersion can be
// read by a system implementing systemVersion.
func CheckCompatibility(cardVersion, systemVersion string) Compatibility {
	cv, ok := parseVersion(cardVersion)
	if !ok {
		return Compatibility{Reason: "invalid version format"}
	}
	sv, ok := parseVersion(systemVersion)
	if !ok {
		return Compatibility{Reason: "invalid version format"}
	}

	if cv.major != sv.major {
		return Compatibility{
			Reason: fmt.Sprintf("major version mismatch: card %d vs system %d", cv.major, sv.major),
		}
	}
	if cv.minor > sv.minor {
		return Compatibility{
			Compatible: true,
			Reason: fmt.Sprintf("card minor version %d is newer than system minor version %d; newer features may be ignored",
				cv.minor, sv.minor),
		}
	}
	return Compatibility{Compatible: true}
}

package utils

import (
	"strings"
)

// Slug lowercases name and collapses every run of characters outside
// [a-z0-9._-] into a single underscore
func Slug(name string) string {
	var b strings.Builder
	pending := false

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-'
		if !valid {
			pending = b.Len() > 0
			continue
		}

		if pending {
			b.WriteByte('_')
			pending = false
		}

		b.WriteRune(r)
	}

	return b.String()
}

// ArtifactStem returns the file stem shared by the object, executable and map
// file of one (library, config) pair on a platform
func ArtifactStem(platformID, library, config string) string {
	return Slug(platformID) + "_" + Slug(library) + "_" + Slug(config)
}

// ResultsFileName returns the persisted snapshot file name for a platform
func ResultsFileName(platformID string) string {
	return "results_" + Slug(platformID) + ".json"
}

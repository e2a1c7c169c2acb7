// Package scan implements the discovery, grouping, deduplication, and
// rename-resolution engine for raw scanner output files.
package scan

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// scanNameRegex matches the default Microsoft Lens naming convention, e.g.
// "3_28_22, 12_51 PM Microsoft Lens.jpg" or "3_28_22, 12_51 PM Microsoft Lens(2).pdf".
// Matching is purely lexical: out-of-range dates still match. Input must be
// NFKC-normalized first so the narrow no-break space Lens emits before AM/PM
// collapses to a plain space.
var scanNameRegex = regexp.MustCompile(`(?i)^\d{1,2}_\d{1,2}_\d{1,2},?\s+\d{1,2}_\d{2}\s*(?:AM|PM)\s*Microsoft Lens(?:\(\d+\))?\.(?:jpg|jpeg|png|pdf)$`)

// scanExtensions are the file extensions the engine will consider at all.
var scanExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// Normalize converts a filename to Unicode canonical composed form so that
// visually identical but differently encoded names compare equal.
func Normalize(name string) string {
	return norm.NFKC.String(name)
}

// Matches reports whether a filename is an eligible raw-scan name. The name
// is normalized before matching, so callers may pass raw directory entries.
func Matches(name string) bool {
	return scanNameRegex.MatchString(Normalize(name))
}

// EligibleExt reports whether the filename carries one of the supported scan
// extensions. Cheaper than Matches; used as a fast gate on watcher events.
func EligibleExt(name string) bool {
	return scanExtensions[strings.ToLower(filepath.Ext(name))]
}

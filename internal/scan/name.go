package scan

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxBaseNameLen bounds sanitized base names, counted in runes, as a
// path-length safety margin.
const MaxBaseNameLen = 100

var (
	invalidCharsRegex = regexp.MustCompile(`[<>:"/\\|?*]`)
	// Go's \s is ASCII-only; suggestions may carry Unicode spaces such as
	// NBSP, so the separator categories are matched too.
	whitespaceRegex = regexp.MustCompile(`[\s\p{Z}]+`)
)

// SanitizeBaseName turns a free-text suggestion into a filesystem-safe base
// name. Rules, in order: strip characters disallowed on common filesystems,
// collapse whitespace runs to single underscores, trim leading/trailing
// periods and spaces, substitute a timestamped default if nothing is left,
// and finally truncate to MaxBaseNameLen runes. Sanitizing an
// already-sanitized name returns it unchanged.
func SanitizeBaseName(raw string, now time.Time) string {
	sanitized := invalidCharsRegex.ReplaceAllString(raw, "")
	sanitized = whitespaceRegex.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, ". ")

	if sanitized == "" {
		sanitized = "document_" + now.Format("20060102_150405")
	}

	return truncateRunes(sanitized, MaxBaseNameLen)
}

// PageBaseName appends a 2-digit, 1-based page ordinal to a sanitized base
// name. The base is shortened first so the suffixed name stays within
// MaxBaseNameLen.
func PageBaseName(base string, page int) string {
	suffix := fmt.Sprintf("_page_%02d", page)
	return truncateRunes(base, MaxBaseNameLen-len(suffix)) + suffix
}

// truncateRunes caps s at max runes; a multi-byte rune is never split, so the
// result is always valid UTF-8.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

package utils

import (
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems, plus the quote that would break
	// a Content-Disposition header
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*;]`)
	// Control characters are dropped
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

const maxFilenameLength = 200

// SanitizeFilename makes a name safe for a download attachment.
func SanitizeFilename(filename string) string {
	// Replace newlines/tabs with spaces before control characters are dropped
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = controlChars.ReplaceAllString(filename, "")
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = strings.TrimSpace(filename)

	// Limit length (most filesystems support 255, but leave room for extension)
	if len(filename) > maxFilenameLength {
		filename = strings.TrimSpace(truncateUTF8(filename, maxFilenameLength))
	}

	if filename == "" || strings.Trim(filename, ".") == "" {
		filename = "book"
	}
	return filename
}

// CollapseWhitespace replaces every run of whitespace with a single space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

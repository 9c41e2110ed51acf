package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "keeps a plain download name",
			input:    "book-1342.epub",
			expected: "book-1342.epub",
		},
		{
			name:     "removes invalid characters",
			input:    `file<>:"/\|?*;name`,
			expected: "filename",
		},
		{
			name:     "replaces newlines and tabs with spaces",
			input:    "file\nname\twith\rspaces",
			expected: "file name with spaces",
		},
		{
			name:     "drops control characters",
			input:    "book\x00-\x7f1",
			expected: "book-1",
		},
		{
			name:     "trims whitespace",
			input:    "  filename  ",
			expected: "filename",
		},
		{
			name:     "falls back for empty",
			input:    "",
			expected: "book",
		},
		{
			name:     "falls back for dots only",
			input:    "..",
			expected: "book",
		},
		{
			name:     "truncates long names",
			input:    strings.Repeat("a", 250),
			expected: strings.Repeat("a", 200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameKeepsRunesWhole(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("é", 150))
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 200)
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\n b\t\tc  "))
	assert.Equal(t, "", CollapseWhitespace(" \n\t "))
}

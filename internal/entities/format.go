package entities

import (
	"fmt"
	"strings"
)

// Format is a downloadable file format.
type Format string

const (
	FormatEPUB         Format = "epub"
	FormatEPUBNoImages Format = "epub-noimages"
	FormatKindle       Format = "kindle"
	FormatMOBI         Format = "mobi"
	FormatTXT          Format = "txt"
	FormatPDF          Format = "pdf"
)

var formatInfo = map[Format]struct {
	ext  string
	mime string
}{
	FormatEPUB:         {"epub", "application/epub+zip"},
	FormatEPUBNoImages: {"epub", "application/epub+zip"},
	FormatKindle:       {"azw3", "application/vnd.amazon.ebook"},
	FormatMOBI:         {"mobi", "application/x-mobipocket-ebook"},
	FormatTXT:          {"txt", "text/plain; charset=utf-8"},
	FormatPDF:          {"pdf", "application/pdf"},
}

// ParseFormat validates a requested format. Empty input means epub.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatEPUB, nil
	}
	f := Format(s)
	if _, ok := formatInfo[f]; !ok {
		return "", fmt.Errorf("unsupported format: %q", s)
	}
	return f, nil
}

// Extension returns the file extension used for downloads of this format.
func (f Format) Extension() string {
	if info, ok := formatInfo[f]; ok {
		return info.ext
	}
	return "epub"
}

// MIMEType returns the Content-Type served for this format.
func (f Format) MIMEType() string {
	if info, ok := formatInfo[f]; ok {
		return info.mime
	}
	return "application/octet-stream"
}

// DownloadFilename follows the book-<id>.<ext> convention.
func DownloadFilename(nativeID string, f Format) string {
	return fmt.Sprintf("book-%s.%s", nativeID, f.Extension())
}

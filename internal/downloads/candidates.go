package downloads

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mrlokans/bookbridge/internal/entities"
)

const (
	DefaultGutenbergURL       = "https://www.gutenberg.org"
	DefaultArchiveDownloadURL = "https://archive.org/download"

	// Responses shorter than this are almost always an HTML error page.
	MinBinaryBytes = 1000
	MinTextBytes   = 500
)

// Candidate is one URL that may host the requested file.
type Candidate struct {
	URL      string
	MinBytes int64
}

var archiveIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// gutenbergPaths returns path templates relative to the mirror root; %[1]d is the ebook number.
func gutenbergPaths(format entities.Format) []string {
	switch format {
	case entities.FormatEPUB:
		return []string{
			"/files/%[1]d/%[1]d-0.epub",
			"/files/%[1]d/%[1]d.epub",
			"/ebooks/%[1]d.epub.images",
			"/ebooks/%[1]d.epub.noimages",
			"/cache/epub/%[1]d/pg%[1]d.epub",
		}
	case entities.FormatEPUBNoImages:
		return []string{
			"/ebooks/%[1]d.epub.noimages",
			"/cache/epub/%[1]d/pg%[1]d.epub",
			"/files/%[1]d/%[1]d.epub",
		}
	case entities.FormatKindle:
		return []string{
			"/ebooks/%[1]d.kf8.images",
			"/cache/epub/%[1]d/pg%[1]d-images-kf8.azw3",
			"/ebooks/%[1]d.kindle.images",
		}
	case entities.FormatMOBI:
		return []string{
			"/files/%[1]d/%[1]d-0.mobi",
			"/files/%[1]d/%[1]d.mobi",
			"/ebooks/%[1]d.mobi.images",
			"/ebooks/%[1]d.mobi.noimages",
			"/cache/epub/%[1]d/pg%[1]d.mobi",
		}
	case entities.FormatTXT:
		return []string{
			"/files/%[1]d/%[1]d-0.txt",
			"/files/%[1]d/%[1]d.txt",
			"/ebooks/%[1]d.txt.utf-8",
			"/cache/epub/%[1]d/pg%[1]d.txt",
		}
	case entities.FormatPDF:
		// PDF is rendered from an EPUB, so these are EPUB locations
		return []string{
			"/ebooks/%[1]d.epub.images",
			"/ebooks/%[1]d.epub.noimages",
			"/files/%[1]d/%[1]d-0.epub",
			"/files/%[1]d/%[1]d.epub",
		}
	}
	return nil
}

// archiveSuffixes returns file name suffixes appended to the item identifier.
func archiveSuffixes(format entities.Format) []string {
	switch format {
	case entities.FormatEPUB, entities.FormatEPUBNoImages, entities.FormatPDF:
		return []string{".epub"}
	case entities.FormatKindle:
		return []string{".azw3", ".mobi"}
	case entities.FormatMOBI:
		return []string{".mobi"}
	case entities.FormatTXT:
		return []string{"_djvu.txt", ".txt"}
	}
	return nil
}

func minBytes(format entities.Format) int64 {
	if format == entities.FormatTXT {
		return MinTextBytes
	}
	return MinBinaryBytes
}

// Candidates lists the URLs tried for (source, nativeID, format), in probe order. An id
// that cannot exist on the source yields an empty list.
func (r *Resolver) Candidates(source entities.SourceID, nativeID string, format entities.Format) ([]Candidate, error) {
	nativeID = entities.StripSourcePrefix(source, nativeID)
	threshold := minBytes(format)

	var urls []string
	switch source {
	case entities.SourceGutendex:
		n, err := strconv.Atoi(nativeID)
		if err != nil || n <= 0 {
			return nil, nil
		}
		for _, tmpl := range gutenbergPaths(format) {
			urls = append(urls, r.gutenbergURL+fmt.Sprintf(tmpl, n))
		}
	case entities.SourceArchive:
		if !archiveIDPattern.MatchString(nativeID) {
			return nil, nil
		}
		for _, suffix := range archiveSuffixes(format) {
			urls = append(urls, r.archiveURL+"/"+nativeID+"/"+nativeID+suffix)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}

	candidates := make([]Candidate, 0, len(urls))
	for _, u := range urls {
		candidates = append(candidates, Candidate{URL: u, MinBytes: threshold})
	}
	return candidates, nil
}

func trimBase(u string) string {
	return strings.TrimRight(u, "/")
}

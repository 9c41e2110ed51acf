package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mrlokans/bookbridge/internal/utils"
)

const (
	containerPath = "META-INF/container.xml"

	// chapters are XHTML; anything bigger is not a real chapter
	maxChapterBytes = 32 << 20
)

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef  string `xml:"idref,attr"`
		Linear string `xml:"linear,attr"`
	} `xml:"spine>itemref"`
}

// epubArchive indexes the zip entries by exact and case-folded name.
type epubArchive struct {
	files map[string]*zip.File
	folds map[string]*zip.File
}

func openArchive(data []byte) (*epubArchive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}
	a := &epubArchive{
		files: make(map[string]*zip.File, len(zr.File)),
		folds: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		a.files[f.Name] = f
		a.folds[strings.ToLower(f.Name)] = f
	}
	return a, nil
}

func (a *epubArchive) read(name string, limit int64) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		f, ok = a.folds[strings.ToLower(name)]
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidContainer, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, limit))
}

// Chapters returns the archive paths of the linear spine items in reading order.
func Chapters(data []byte) ([]string, error) {
	a, err := openArchive(data)
	if err != nil {
		return nil, conversionError(err)
	}
	chapters, err := a.spine()
	if err != nil {
		return nil, conversionError(err)
	}
	return chapters, nil
}

func (a *epubArchive) spine() ([]string, error) {
	raw, err := a.read(containerPath, 1<<20)
	if err != nil {
		return nil, err
	}
	var container epubContainer
	if err := xml.Unmarshal(raw, &container); err != nil {
		return nil, fmt.Errorf("%w: container.xml: %v", ErrInvalidContainer, err)
	}

	opfPath := ""
	for _, rf := range container.Rootfiles {
		if rf.FullPath != "" && (rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml") {
			opfPath = rf.FullPath
			break
		}
	}
	if opfPath == "" {
		return nil, fmt.Errorf("%w: no package document", ErrInvalidContainer)
	}

	raw, err = a.read(opfPath, 8<<20)
	if err != nil {
		return nil, err
	}
	var pkg opfPackage
	if err := xml.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("%w: package document: %v", ErrInvalidContainer, err)
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefs[item.ID] = item.Href
	}

	base := path.Dir(opfPath)
	chapters := make([]string, 0, len(pkg.Spine))
	for _, ref := range pkg.Spine {
		if ref.Linear == "no" {
			continue
		}
		href, ok := hrefs[ref.IDRef]
		if !ok || href == "" {
			continue
		}
		chapters = append(chapters, resolveHref(base, href))
	}
	if len(chapters) == 0 {
		return nil, ErrEmptySpine
	}
	return chapters, nil
}

// resolveHref turns a manifest href into an archive path relative to the package document.
func resolveHref(base, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if base == "." || base == "" {
		return path.Clean(href)
	}
	return path.Join(base, href)
}

// ExtractText returns the readable text of every spine chapter in reading order. Markup is
// replaced by spaces, whitespace is collapsed and chapters are separated by a blank line.
func ExtractText(data []byte) (string, error) {
	a, err := openArchive(data)
	if err != nil {
		return "", conversionError(err)
	}
	chapters, err := a.spine()
	if err != nil {
		return "", conversionError(err)
	}

	parts := make([]string, 0, len(chapters))
	for _, name := range chapters {
		raw, err := a.read(name, maxChapterBytes)
		if err != nil {
			// a dangling spine entry does not spoil the rest of the book
			continue
		}
		text, err := chapterText(raw)
		if err != nil {
			continue
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", conversionError(ErrNoText)
	}
	return strings.Join(parts, "\n\n"), nil
}

// chapterText strips one XHTML document down to its visible text.
func chapterText(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find("head, script, style").Remove()

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return utils.CollapseWhitespace(b.String()), nil
}

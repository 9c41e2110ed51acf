package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chapter struct {
	id, href, body string
	nonLinear      bool
}

// buildEPUB assembles a minimal EPUB in memory. spineOrder lists chapter ids in reading order.
func buildEPUB(t *testing.T, chapters []chapter, spineOrder []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	write("mimetype", "application/epub+zip")
	write("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spine strings.Builder
	linear := map[string]bool{}
	for _, c := range chapters {
		fmt.Fprintf(&manifest, `<item id="%s" href="%s" media-type="application/xhtml+xml"/>`, c.id, c.href)
		linear[c.id] = !c.nonLinear
		write("OEBPS/"+c.href, c.body)
	}
	for _, id := range spineOrder {
		if linear[id] {
			fmt.Fprintf(&spine, `<itemref idref="%s"/>`, id)
		} else {
			fmt.Fprintf(&spine, `<itemref idref="%s" linear="no"/>`, id)
		}
	}
	write("OEBPS/content.opf", fmt.Sprintf(`<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>%s</manifest>
  <spine>%s</spine>
</package>`, manifest.String(), spine.String()))

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func xhtml(body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Ignored Title</title>
<style>p { color: red; }</style></head><body>` + body + `</body></html>`
}

func threeChapters() []chapter {
	return []chapter{
		{id: "c1", href: "text/one.xhtml", body: xhtml("<h1>Chapter   One</h1>\n<p>It was a <em>dark</em>\n\n night.</p>")},
		{id: "c2", href: "text/two.xhtml", body: xhtml("<h1>Chapter Two</h1><p>Rain&amp;wind</p><script>var x = 1;</script>")},
		{id: "c3", href: "text/three%20final.xhtml", body: xhtml("<div><p>The</p><p>End</p></div>")},
	}
}

func TestExtractTextFollowsSpineOrder(t *testing.T) {
	chapters := threeChapters()
	chapters[2].href = "text/three final.xhtml"
	data := buildEPUB(t, chapters, []string{"c3", "c1", "c2"})

	text, err := ExtractText(data)
	require.NoError(t, err)

	assert.Equal(t,
		"The End\n\nChapter One It was a dark night.\n\nChapter Two Rain&wind",
		text)
	assert.NotContains(t, text, "Ignored Title")
	assert.NotContains(t, text, "color")
	assert.NotContains(t, text, "var x")
}

func TestChaptersResolvesEscapedHrefs(t *testing.T) {
	chapters := threeChapters()
	data := buildEPUB(t, chapters[:1], []string{"c1"})

	got, err := Chapters(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"OEBPS/text/one.xhtml"}, got)

	assert.Equal(t, "OEBPS/text/three final.xhtml", resolveHref("OEBPS", "text/three%20final.xhtml#part1"))
	assert.Equal(t, "ch1.xhtml", resolveHref(".", "ch1.xhtml"))
}

func TestExtractTextSkipsNonLinearItems(t *testing.T) {
	chapters := []chapter{
		{id: "cover", href: "cover.xhtml", body: xhtml("<p>Cover page</p>"), nonLinear: true},
		{id: "c1", href: "c1.xhtml", body: xhtml("<p>Body text</p>")},
	}
	data := buildEPUB(t, chapters, []string{"cover", "c1"})

	text, err := ExtractText(data)
	require.NoError(t, err)
	assert.Equal(t, "Body text", text)
}

func TestExtractTextFailures(t *testing.T) {
	t.Run("empty spine", func(t *testing.T) {
		data := buildEPUB(t, threeChapters(), nil)
		_, err := ExtractText(data)

		var convErr *ConversionError
		require.True(t, errors.As(err, &convErr))
		assert.ErrorIs(t, err, ErrEmptySpine)
	})

	t.Run("no readable text", func(t *testing.T) {
		data := buildEPUB(t, []chapter{{id: "c1", href: "c1.xhtml", body: xhtml("<p>  </p><img src='x.png'/>")}}, []string{"c1"})
		_, err := ExtractText(data)
		assert.ErrorIs(t, err, ErrNoText)
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := ExtractText([]byte("<html>error page</html>"))
		var convErr *ConversionError
		assert.True(t, errors.As(err, &convErr))
		assert.ErrorIs(t, err, ErrInvalidContainer)
	})
}

func TestPaginate(t *testing.T) {
	t.Run("fits", func(t *testing.T) {
		doc := Paginate("hello world", 5, 10)
		assert.Equal(t, []string{"hello", " worl", "d"}, doc.Chunks)
		assert.Equal(t, 3, doc.TotalChunks)
		assert.False(t, doc.Truncated)
	})

	t.Run("truncates and reports it", func(t *testing.T) {
		doc := Paginate(strings.Repeat("a", 2000*101+1), DefaultChunkSize, DefaultMaxChunks)
		assert.Len(t, doc.Chunks, DefaultMaxChunks)
		assert.Equal(t, 102, doc.TotalChunks)
		assert.True(t, doc.Truncated)
	})

	t.Run("rune safe", func(t *testing.T) {
		doc := Paginate(strings.Repeat("ж", 7), 3, 10)
		require.Len(t, doc.Chunks, 3)
		for _, c := range doc.Chunks {
			assert.True(t, utf8.ValidString(c))
		}
		assert.Equal(t, "жжж", doc.Chunks[0])
	})

	t.Run("empty", func(t *testing.T) {
		doc := Paginate("", 10, 10)
		assert.Empty(t, doc.Chunks)
		assert.False(t, doc.Truncated)
	})
}

func TestRenderPDF(t *testing.T) {
	doc := Paginate(strings.Repeat("Lorem ipsum dolor sit amet. ", 500), 2000, 3)
	require.True(t, doc.Truncated)

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, "Book ID: 84", doc, 2))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "%%EOF")
}

func TestRenderPDFPageBreaks(t *testing.T) {
	tests := []struct {
		name          string
		chunks        int
		chunksPerPage int
		wantPages     int
	}{
		{"single chunk", 1, 5, 1},
		{"exactly one page", 5, 5, 1},
		{"one past a page", 6, 5, 2},
		{"several pages", 24, 5, 5},
		{"one chunk per page", 3, 1, 3},
		{"default per page", 11, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// chunks short enough that automatic page breaks never kick in
			doc := Paginate(strings.Repeat("word ", tt.chunks*4), 20, 100)
			require.Len(t, doc.Chunks, tt.chunks)

			pdf := buildPDF("Book ID: 1", doc, tt.chunksPerPage)
			require.NoError(t, pdf.Error())
			assert.Equal(t, tt.wantPages, pdf.PageCount())
		})
	}
}

func TestRenderPDFTruncationNotice(t *testing.T) {
	render := func(doc Document) string {
		pdf := buildPDF("Book ID: 2", doc, 5)
		pdf.SetCompression(false)
		var buf bytes.Buffer
		require.NoError(t, pdf.Output(&buf))
		return buf.String()
	}

	truncated := Paginate(strings.Repeat("word ", 28), 20, 3)
	require.True(t, truncated.Truncated)
	assert.Equal(t, "Content truncated: 3 of 7 sections included.", truncationNotice(truncated))
	assert.Contains(t, render(truncated), "Content truncated: 3 of 7 sections included.")

	complete := Paginate(strings.Repeat("word ", 8), 20, 3)
	require.False(t, complete.Truncated)
	assert.NotContains(t, render(complete), "Content truncated")
}

func TestConverter(t *testing.T) {
	data := buildEPUB(t, threeChapters()[:2], []string{"c1", "c2"})

	t.Run("converts", func(t *testing.T) {
		c := NewConverter(Options{Concurrency: 1})
		res, err := c.Convert(context.Background(), "Book ID: 1", bytes.NewReader(data))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF-")))
		assert.False(t, res.Truncated)
		assert.Contains(t, res.Document.Text, "Chapter Two")
	})

	t.Run("size limit", func(t *testing.T) {
		c := NewConverter(Options{MaxEPUBBytes: 100})
		_, err := c.Convert(context.Background(), "x", bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("cancelled while waiting for a slot", func(t *testing.T) {
		c := NewConverter(Options{Concurrency: 1})
		require.NoError(t, c.sem.Acquire(context.Background(), 1))
		defer c.sem.Release(1)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Convert(ctx, "x", bytes.NewReader(data))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

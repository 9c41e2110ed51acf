package convert

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// RenderPDF writes doc as an A4 PDF: a title line, then the chunks in order with a page
// break every chunksPerPage chunks. A truncated document ends with a notice.
func RenderPDF(w io.Writer, title string, doc Document, chunksPerPage int) error {
	if err := buildPDF(title, doc, chunksPerPage).Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func buildPDF(title string, doc Document, chunksPerPage int) *fpdf.Fpdf {
	if chunksPerPage <= 0 {
		chunksPerPage = DefaultChunksPerPage
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(title, true)
	pdf.SetCreator("bookbridge", true)

	// core fonts are cp1252; characters outside it are replaced
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(title), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Times", "", 11)
	for i, chunk := range doc.Chunks {
		if i > 0 && i%chunksPerPage == 0 {
			pdf.AddPage()
		}
		pdf.MultiCell(0, 5, tr(chunk), "", "J", false)
		pdf.Ln(3)
	}

	if doc.Truncated {
		pdf.Ln(4)
		pdf.SetFont("Times", "I", 10)
		pdf.MultiCell(0, 5, tr(truncationNotice(doc)), "", "L", false)
	}
	return pdf
}

func truncationNotice(doc Document) string {
	return fmt.Sprintf("Content truncated: %d of %d sections included.", len(doc.Chunks), doc.TotalChunks)
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mrlokans/bookbridge/internal/downloads"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/utils"
)

// DownloadResult is a file ready to be streamed to the client. The caller must close Body.
type DownloadResult struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when unknown
	Filename      string
	Format        entities.Format
	Source        entities.SourceID // catalog the file was actually served from
	Truncated     bool              // PDF only: content was cut at the section limit
}

// DownloadService resolves files and converts EPUB to PDF when asked.
type DownloadService struct {
	resolver  FileResolver
	converter EPUBConverter
}

// NewDownloadService creates a new DownloadService.
func NewDownloadService(resolver FileResolver, converter EPUBConverter) *DownloadService {
	return &DownloadService{
		resolver:  resolver,
		converter: converter,
	}
}

// Supports reports whether files can be downloaded from source.
func (s *DownloadService) Supports(source entities.SourceID) bool {
	return s.resolver.Supports(source)
}

// Download resolves a file for (source, id) in the requested format. An empty format means epub.
// Errors: downloads.ErrUnsupportedFormat, downloads.ErrUnsupportedSource, downloads.ErrNotFound
// and *convert.ConversionError for PDF requests whose EPUB is unusable.
func (s *DownloadService) Download(ctx context.Context, source entities.SourceID, nativeID, formatName string) (*DownloadResult, error) {
	format, err := entities.ParseFormat(formatName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", downloads.ErrUnsupportedFormat, formatName)
	}
	if !s.resolver.Supports(source) {
		return nil, fmt.Errorf("%w: %s", downloads.ErrUnsupportedSource, source)
	}
	nativeID = strings.TrimSpace(entities.StripSourcePrefix(source, nativeID))
	if nativeID == "" {
		return nil, ErrEmptyID
	}

	dl, err := s.resolver.Resolve(ctx, source, nativeID, format)
	if err != nil {
		return nil, err
	}
	log.Printf("[DOWNLOAD] %s:%s format=%s served from %s", source, nativeID, format, dl.URL)

	result := &DownloadResult{
		Filename: utils.SanitizeFilename(entities.DownloadFilename(nativeID, format)),
		Format:   format,
		Source:   dl.Source,
	}

	if format != entities.FormatPDF {
		result.Body = dl.Body
		result.ContentType = format.MIMEType()
		result.ContentLength = dl.ContentLength
		return result, nil
	}

	defer dl.Body.Close()
	converted, err := s.converter.Convert(ctx, "Book ID: "+nativeID, dl.Body)
	if err != nil {
		return nil, err
	}
	if converted.Truncated {
		log.Printf("[DOWNLOAD] %s:%s PDF truncated at %d of %d sections",
			source, nativeID, len(converted.Document.Chunks), converted.Document.TotalChunks)
	}

	result.Body = io.NopCloser(bytes.NewReader(converted.PDF))
	result.ContentType = format.MIMEType()
	result.ContentLength = int64(len(converted.PDF))
	result.Truncated = converted.Truncated
	return result, nil
}

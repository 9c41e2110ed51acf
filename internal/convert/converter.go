// Package convert turns EPUB files into paginated text and renders that text as PDF.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/semaphore"
)

const DefaultMaxEPUBBytes = 64 << 20

// Options tunes a Converter. Zero values fall back to defaults.
type Options struct {
	ChunkSize     int
	MaxChunks     int
	ChunksPerPage int
	MaxEPUBBytes  int64
	Concurrency   int64 // simultaneous conversions, defaults to GOMAXPROCS
}

// Converter runs EPUB to PDF conversions with a bound on how many run at once.
type Converter struct {
	opts Options
	sem  *semaphore.Weighted
}

// NewConverter creates a Converter.
func NewConverter(opts Options) *Converter {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = DefaultMaxChunks
	}
	if opts.ChunksPerPage <= 0 {
		opts.ChunksPerPage = DefaultChunksPerPage
	}
	if opts.MaxEPUBBytes <= 0 {
		opts.MaxEPUBBytes = DefaultMaxEPUBBytes
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = int64(runtime.GOMAXPROCS(0))
	}
	return &Converter{opts: opts, sem: semaphore.NewWeighted(opts.Concurrency)}
}

// Result is a rendered PDF with the pagination it was built from.
type Result struct {
	PDF       []byte
	Document  Document
	Truncated bool
}

// Convert reads an EPUB stream and renders it as PDF. Read failures are returned as-is;
// unusable content is reported as *ConversionError.
func (c *Converter) Convert(ctx context.Context, title string, epub io.Reader) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(epub, c.opts.MaxEPUBBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read epub: %w", err)
	}
	if int64(len(data)) > c.opts.MaxEPUBBytes {
		return nil, conversionError(ErrTooLarge)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	text, err := ExtractText(data)
	if err != nil {
		return nil, err
	}
	doc := Paginate(text, c.opts.ChunkSize, c.opts.MaxChunks)

	var buf bytes.Buffer
	if err := RenderPDF(&buf, title, doc, c.opts.ChunksPerPage); err != nil {
		return nil, err
	}
	return &Result{PDF: buf.Bytes(), Document: doc, Truncated: doc.Truncated}, nil
}

package convert

import "unicode/utf8"

const (
	DefaultChunkSize     = 2000
	DefaultMaxChunks     = 100
	DefaultChunksPerPage = 5
)

// Document is extracted text split into fixed-size chunks for rendering.
type Document struct {
	Text        string
	Chunks      []string
	TotalChunks int  // chunks the full text would need
	Truncated   bool // Chunks holds fewer than TotalChunks
}

// Paginate splits text into chunks of at most chunkSize runes and keeps the first maxChunks.
func Paginate(text string, chunkSize, maxChunks int) Document {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}

	doc := Document{Text: text, Chunks: []string{}}
	rest := text
	for rest != "" {
		end, runes := 0, 0
		for end < len(rest) && runes < chunkSize {
			_, size := utf8.DecodeRuneInString(rest[end:])
			end += size
			runes++
		}
		doc.TotalChunks++
		if len(doc.Chunks) < maxChunks {
			doc.Chunks = append(doc.Chunks, rest[:end])
		}
		rest = rest[end:]
	}
	doc.Truncated = doc.TotalChunks > len(doc.Chunks)
	return doc
}

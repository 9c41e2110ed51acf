package downloads

import "errors"

var (
	// ErrNotFound means every candidate on every fallback source was exhausted.
	ErrNotFound          = errors.New("book file not found")
	ErrUnsupportedSource = errors.New("downloads are not supported for this source")
	ErrUnsupportedFormat = errors.New("unsupported format")

	errCandidateRejected = errors.New("candidate rejected")
	errTooSmall          = errors.New("response below minimum plausible size")
)

package convert

import "errors"

var (
	ErrEmptySpine       = errors.New("epub spine is empty")
	ErrNoText           = errors.New("epub contains no readable text")
	ErrInvalidContainer = errors.New("invalid epub container")
	ErrTooLarge         = errors.New("epub exceeds size limit")
)

// ConversionError is returned when an EPUB cannot be turned into a document. It is
// distinct from a missing file: the file was found but has no usable content.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return "conversion failed: " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

func conversionError(err error) error {
	return &ConversionError{Err: err}
}

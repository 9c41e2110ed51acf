package catalogs

import (
	"errors"
	"fmt"

	"github.com/mrlokans/bookbridge/internal/entities"
)

// ErrBookNotFound indicates the upstream has no record with the requested id.
var ErrBookNotFound = errors.New("book not found")

// UpstreamError is a transport, status or decoding failure of one upstream call.
type UpstreamError struct {
	Source     entities.SourceID
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: upstream returned HTTP %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

package deck

import (
	"fmt"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

// Reasons carried by ExtractionError.
const (
	ReasonUnsupported   = "unsupported"
	ReasonMalformed     = "malformed"
	ReasonNotConfigured = "not_configured"
	ReasonFetchFailed   = "fetch_failed"
	ReasonRenderFailed  = "render_failed"
	ReasonInvalidSource = "invalid_source"
)

// UnsupportedFormatError is returned when no extractor exists for a source.
// It rejects the submission; it is not an internal failure.
type UnsupportedFormatError struct {
	Source string
	Format models.DeckFormat
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported deck format %q for %s", e.Format, e.Source)
}

// ExtractionError is returned when a deck of a known format could not be
// read.
type ExtractionError struct {
	Format models.DeckFormat
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s extraction failed: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("%s extraction failed (%s): %v", e.Format, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionErr(format models.DeckFormat, reason string, err error) *ExtractionError {
	return &ExtractionError{Format: format, Reason: reason, Err: err}
}

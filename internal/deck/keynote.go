package deck

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

var slideUUIDMarker = []byte("<slide-uuid>")

// KeynoteExtractor reads legacy Keynote packages, which are zip archives
// holding an index.apxl document. Fonts and media are not extractable.
type KeynoteExtractor struct{}

func (e *KeynoteExtractor) CountSlides(_ context.Context, source string) (int, error) {
	return countKeynoteSlides(source)
}

func (e *KeynoteExtractor) Extract(_ context.Context, source string) (*models.ExtractionResult, error) {
	n, err := countKeynoteSlides(source)
	if err != nil {
		return nil, err
	}
	return &models.ExtractionResult{
		SlideCount:      n,
		Fonts:           []string{},
		MediaConfidence: models.ConfidenceLow,
		Rendering:       models.RenderingInfo{Available: false, Note: "server-side rendering is not available for Keynote"},
	}, nil
}

func countKeynoteSlides(source string) (int, error) {
	zr, err := zip.OpenReader(source)
	if err != nil {
		return 0, extractionErr(models.FormatKeynote, ReasonMalformed, errors.New("file is not a valid Keynote package"))
	}
	defer zr.Close()

	rc, err := openZipPart(&zr.Reader, "index.apxl")
	if err != nil {
		return 0, extractionErr(models.FormatKeynote, ReasonUnsupported, errors.New("unsupported Keynote file structure"))
	}
	defer rc.Close()

	index, err := io.ReadAll(rc)
	if err != nil {
		return 0, extractionErr(models.FormatKeynote, ReasonMalformed, err)
	}
	return bytes.Count(index, slideUUIDMarker), nil
}

package deck

import (
	"context"
	"errors"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

var errCanvaNoAPI = errors.New("no Canva API is available for analysis; export the deck as PDF or PPTX")

// CanvaExtractor exists so Canva links are recognized and rejected with a
// clear message.
type CanvaExtractor struct{}

func (e *CanvaExtractor) Extract(context.Context, string) (*models.ExtractionResult, error) {
	return nil, extractionErr(models.FormatCanva, ReasonUnsupported, errCanvaNoAPI)
}

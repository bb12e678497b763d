package deck

import (
	"context"
	"sort"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

// Extractor produces the normalized view of one deck. It returns either a
// fully populated result or an error, never a partial result.
type Extractor interface {
	Extract(ctx context.Context, source string) (*models.ExtractionResult, error)
}

// SlideCounter is implemented by extractors that can count slides without
// rendering them.
type SlideCounter interface {
	CountSlides(ctx context.Context, source string) (int, error)
}

// Deps are the collaborators extractors need. Nil cloud clients leave the
// matching formats registered but failing with ReasonNotConfigured.
type Deps struct {
	Renderer        PageRenderer
	RenderDPI       float64
	Slides          SlidesAPI
	SlideThumbnails bool
	Figma           FigmaAPI
}

// Registry is the closed mapping from format to extractor.
type Registry struct {
	extractors map[models.DeckFormat]Extractor
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{extractors: map[models.DeckFormat]Extractor{
		models.FormatPDF:          &PDFExtractor{Renderer: deps.Renderer, DPI: deps.RenderDPI},
		models.FormatPPTX:         &PPTXExtractor{},
		models.FormatMarkdown:     &MarkdownExtractor{},
		models.FormatKeynote:      &KeynoteExtractor{},
		models.FormatGoogleSlides: &GoogleSlidesExtractor{API: deps.Slides, Thumbnails: deps.SlideThumbnails},
		models.FormatFigma:        &FigmaExtractor{API: deps.Figma},
		models.FormatCanva:        &CanvaExtractor{},
	}}
}

// Lookup returns the extractor for format, or an UnsupportedFormatError.
func (r *Registry) Lookup(format models.DeckFormat, source string) (Extractor, error) {
	ex, ok := r.extractors[format]
	if !ok {
		return nil, &UnsupportedFormatError{Source: source, Format: format}
	}
	return ex, nil
}

// CountSlides counts slides without a full extraction. It returns -1 when the
// format's extractor cannot count cheaply or counting fails.
func (r *Registry) CountSlides(ctx context.Context, format models.DeckFormat, source string) int {
	ex, ok := r.extractors[format]
	if !ok {
		return -1
	}
	counter, ok := ex.(SlideCounter)
	if !ok {
		return -1
	}
	n, err := counter.CountSlides(ctx, source)
	if err != nil {
		return -1
	}
	return n
}

// Formats lists the registered formats.
func (r *Registry) Formats() []models.DeckFormat {
	out := make([]models.DeckFormat, 0, len(r.extractors))
	for f := range r.extractors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package models

import (
	"errors"
	"fmt"
)

// DeckFormat is the closed set of deck formats the pipeline knows about.
type DeckFormat string

const (
	FormatPDF          DeckFormat = "pdf"
	FormatPPTX         DeckFormat = "pptx"
	FormatMarkdown     DeckFormat = "markdown"
	FormatKeynote      DeckFormat = "keynote"
	FormatGoogleSlides DeckFormat = "google_slides"
	FormatFigma        DeckFormat = "figma"
	FormatCanva        DeckFormat = "canva"
	FormatUnsupported  DeckFormat = "unsupported"
)

// IsRemote reports whether decks of this format are addressed by URL.
func (f DeckFormat) IsRemote() bool {
	switch f {
	case FormatGoogleSlides, FormatFigma, FormatCanva:
		return true
	}
	return false
}

// Submission is a single request to analyze a deck. It is created once per
// request and never mutated.
type Submission struct {
	Source         string `json:"source"`
	DeclaredFormat string `json:"deck_format,omitempty"`
	ProcessingID   string `json:"processing_id"`
}

// Media confidence levels reported alongside the media flags.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// RenderingInfo records whether slide images could be produced for a deck.
type RenderingInfo struct {
	Available bool   `json:"available"`
	Note      string `json:"note,omitempty"`
}

// ExtractionResult is the normalized view of a deck produced by an extractor.
// SlideImages is either empty or holds exactly one PNG per slide.
type ExtractionResult struct {
	SlideCount      int
	Fonts           []string
	VideoPresent    bool
	AudioPresent    bool
	MediaConfidence string
	SlideImages     [][]byte
	Rendering       RenderingInfo
}

var ErrSlideImageMismatch = errors.New("slide image count does not match slide count")

// Validate enforces the slide image invariant.
func (r *ExtractionResult) Validate() error {
	if r.SlideCount < 0 {
		return fmt.Errorf("negative slide count %d", r.SlideCount)
	}
	if n := len(r.SlideImages); n != 0 && n != r.SlideCount {
		return fmt.Errorf("%w: %d images for %d slides", ErrSlideImageMismatch, n, r.SlideCount)
	}
	return nil
}

// SlideJudgment is the structured verdict for one slide returned by the
// vision judgment service.
type SlideJudgment struct {
	SlideNumber            int    `json:"slide_number"`
	IsTitleSlide           bool   `json:"is_title_slide"`
	BulletPoints           int    `json:"bullet_points"`
	Images                 int    `json:"images"`
	AdheresToBestPractices bool   `json:"adheres_to_best_practices"`
	Suggestions            string `json:"suggestions"`
}

package deck

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

var (
	markdownVideo = regexp.MustCompile(`(?i)!\[[^\]]*\]\([^)]*\.(mp4|avi|mov|wmv)\)|<video[\s>]`)
	markdownAudio = regexp.MustCompile(`(?i)<audio[\s>]`)
)

// MarkdownExtractor reads slide decks written as Markdown, where a line that
// is exactly "---" or "***" separates slides.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) CountSlides(_ context.Context, source string) (int, error) {
	content, err := os.ReadFile(source)
	if err != nil {
		return 0, extractionErr(models.FormatMarkdown, ReasonMalformed, err)
	}
	return countMarkdownSlides(string(content)), nil
}

func (e *MarkdownExtractor) Extract(_ context.Context, source string) (*models.ExtractionResult, error) {
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, extractionErr(models.FormatMarkdown, ReasonMalformed, err)
	}
	content := string(raw)
	return &models.ExtractionResult{
		SlideCount:      countMarkdownSlides(content),
		Fonts:           []string{},
		VideoPresent:    markdownVideo.MatchString(content),
		AudioPresent:    markdownAudio.MatchString(content),
		MediaConfidence: models.ConfidenceHigh,
		Rendering:       models.RenderingInfo{Available: false, Note: "Markdown decks are not rendered to images"},
	}, nil
}

func countMarkdownSlides(content string) int {
	n := 1
	for _, line := range strings.Split(content, "\n") {
		switch strings.TrimRight(line, "\r") {
		case "---", "***":
			n++
		}
	}
	return n
}

package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"

	"google.golang.org/api/slides/v1"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

var presentationID = regexp.MustCompile(`^https://docs\.google\.com/presentation/d/([a-zA-Z0-9_-]+)`)

// SlidesAPI is the part of the Google Slides API the extractor needs.
type SlidesAPI interface {
	GetPresentation(ctx context.Context, id string) (*slides.Presentation, error)
	// SlideThumbnail returns a PNG of one page.
	SlideThumbnail(ctx context.Context, presentationID, pageObjectID string) ([]byte, error)
}

// SlidesClient implements SlidesAPI on top of the generated Slides client.
type SlidesClient struct {
	svc        *slides.Service
	httpClient *http.Client
}

func NewSlidesClient(svc *slides.Service, httpClient *http.Client) *SlidesClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SlidesClient{svc: svc, httpClient: httpClient}
}

func (c *SlidesClient) GetPresentation(ctx context.Context, id string) (*slides.Presentation, error) {
	return c.svc.Presentations.Get(id).Context(ctx).Do()
}

func (c *SlidesClient) SlideThumbnail(ctx context.Context, presentationID, pageObjectID string) ([]byte, error) {
	thumb, err := c.svc.Presentations.Pages.GetThumbnail(presentationID, pageObjectID).
		ThumbnailPropertiesMimeType("PNG").
		ThumbnailPropertiesThumbnailSize("LARGE").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumb.ContentUrl, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GoogleSlidesExtractor walks a presentation fetched from the Slides API.
type GoogleSlidesExtractor struct {
	API        SlidesAPI
	Thumbnails bool
}

func (e *GoogleSlidesExtractor) Extract(ctx context.Context, source string) (*models.ExtractionResult, error) {
	if e.API == nil {
		return nil, extractionErr(models.FormatGoogleSlides, ReasonNotConfigured, errors.New("no Slides API client configured"))
	}
	m := presentationID.FindStringSubmatch(source)
	if m == nil {
		return nil, extractionErr(models.FormatGoogleSlides, ReasonInvalidSource, errors.New("invalid Google Slides URL"))
	}
	id := m[1]

	pres, err := e.API.GetPresentation(ctx, id)
	if err != nil {
		return nil, extractionErr(models.FormatGoogleSlides, ReasonFetchFailed, err)
	}

	fonts := map[string]struct{}{}
	var video bool
	for _, page := range pres.Slides {
		for _, el := range page.PageElements {
			if walkPageElement(el, fonts) {
				video = true
			}
		}
	}

	res := &models.ExtractionResult{
		SlideCount:      len(pres.Slides),
		Fonts:           sortedSet(fonts),
		VideoPresent:    video,
		MediaConfidence: models.ConfidenceLow,
		Rendering:       models.RenderingInfo{Available: false, Note: "slide thumbnails are disabled"},
	}
	if e.Thumbnails {
		res.SlideImages, res.Rendering = e.thumbnails(ctx, id, pres.Slides)
	}
	return res, nil
}

// thumbnails fetches one image per slide. Any failure drops them all so the
// result never holds a partial image list.
func (e *GoogleSlidesExtractor) thumbnails(ctx context.Context, id string, pages []*slides.Page) ([][]byte, models.RenderingInfo) {
	images := make([][]byte, 0, len(pages))
	for i, page := range pages {
		png, err := e.API.SlideThumbnail(ctx, id, page.ObjectId)
		if err != nil {
			slog.Warn("Slide thumbnail failed; continuing without slide images.",
				"presentationId", id, "slide", i+1, "error", err)
			return nil, models.RenderingInfo{Available: false, Note: fmt.Sprintf("thumbnail for slide %d failed: %v", i+1, err)}
		}
		images = append(images, png)
	}
	return images, models.RenderingInfo{Available: true}
}

// walkPageElement collects fonts from el and its descendants and reports
// whether any of them is a video.
func walkPageElement(el *slides.PageElement, fonts map[string]struct{}) bool {
	if el == nil {
		return false
	}
	video := el.Video != nil
	if el.Shape != nil {
		collectTextFonts(el.Shape.Text, fonts)
	}
	if el.Table != nil {
		for _, row := range el.Table.TableRows {
			for _, cell := range row.TableCells {
				collectTextFonts(cell.Text, fonts)
			}
		}
	}
	if el.ElementGroup != nil {
		for _, child := range el.ElementGroup.Children {
			if walkPageElement(child, fonts) {
				video = true
			}
		}
	}
	return video
}

func collectTextFonts(text *slides.TextContent, fonts map[string]struct{}) {
	if text == nil {
		return
	}
	for _, te := range text.TextElements {
		if te.TextRun != nil && te.TextRun.Style != nil && te.TextRun.Style.FontFamily != "" {
			fonts[te.TextRun.Style.FontFamily] = struct{}{}
		}
	}
}

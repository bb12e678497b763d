package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

const defaultFigmaBaseURL = "https://api.figma.com/v1"

// FigmaNode is the subset of a Figma document node the extractor reads.
type FigmaNode struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Type         string             `json:"type"`
	Children     []*FigmaNode       `json:"children,omitempty"`
	Style        *FigmaTypeStyle    `json:"style,omitempty"`
	Interactions []FigmaInteraction `json:"interactions,omitempty"`
}

type FigmaTypeStyle struct {
	FontFamily string `json:"fontFamily"`
}

type FigmaInteraction struct {
	Actions []*FigmaAction `json:"actions"`
}

type FigmaAction struct {
	Type        string `json:"type"`
	MediaAction string `json:"mediaAction,omitempty"`
}

// FigmaFile is the response of GET /v1/files/:key.
type FigmaFile struct {
	Name     string     `json:"name"`
	Document *FigmaNode `json:"document"`
}

// FigmaAPI fetches a Figma file by key.
type FigmaAPI interface {
	GetFile(ctx context.Context, key string) (*FigmaFile, error)
}

// FigmaClient is a minimal REST client for the Figma files endpoint.
type FigmaClient struct {
	httpClient *http.Client
	token      string
	baseURL    string
}

func NewFigmaClient(token, baseURL string) *FigmaClient {
	if baseURL == "" {
		baseURL = defaultFigmaBaseURL
	}
	return &FigmaClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      strings.TrimSpace(token),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *FigmaClient) GetFile(ctx context.Context, key string) (*FigmaFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Figma-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("figma request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("figma status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var file FigmaFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode figma file: %w", err)
	}
	return &file, nil
}

// FigmaExtractor treats each top-level frame of every page as a slide.
type FigmaExtractor struct {
	API FigmaAPI
}

func (e *FigmaExtractor) Extract(ctx context.Context, source string) (*models.ExtractionResult, error) {
	if e.API == nil {
		return nil, extractionErr(models.FormatFigma, ReasonNotConfigured, errors.New("no Figma token configured"))
	}
	key, err := figmaFileKey(source)
	if err != nil {
		return nil, extractionErr(models.FormatFigma, ReasonInvalidSource, err)
	}
	file, err := e.API.GetFile(ctx, key)
	if err != nil {
		return nil, extractionErr(models.FormatFigma, ReasonFetchFailed, err)
	}
	if file.Document == nil {
		return nil, extractionErr(models.FormatFigma, ReasonMalformed, errors.New("figma file has no document"))
	}

	w := &figmaWalk{fonts: map[string]struct{}{}}
	w.visit(file.Document)
	return &models.ExtractionResult{
		SlideCount:      w.frames,
		Fonts:           sortedSet(w.fonts),
		VideoPresent:    w.video,
		MediaConfidence: models.ConfidenceLow,
		Rendering:       models.RenderingInfo{Available: false, Note: "server-side rendering is not available for Figma"},
	}, nil
}

type figmaWalk struct {
	frames int
	fonts  map[string]struct{}
	video  bool
}

func (w *figmaWalk) visit(n *FigmaNode) {
	if n == nil {
		return
	}
	if n.Type == "CANVAS" {
		w.frames += len(n.Children)
	}
	if n.Style != nil && n.Style.FontFamily != "" {
		w.fonts[n.Style.FontFamily] = struct{}{}
	}
	for _, in := range n.Interactions {
		for _, a := range in.Actions {
			if a != nil && a.Type == "UPDATE_MEDIA_RUNTIME" && a.MediaAction == "TOGGLE_PLAY_PAUSE" {
				w.video = true
			}
		}
	}
	for _, c := range n.Children {
		w.visit(c)
	}
}

// figmaFileKey pulls the key out of /design/<key>/... or /file/<key>/... URLs.
func figmaFileKey(source string) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if (parts[i] == "design" || parts[i] == "file") && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("invalid Figma URL format: %s", source)
}

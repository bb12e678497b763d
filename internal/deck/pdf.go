package deck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

// DefaultRenderDPI is used when no DPI is configured.
const DefaultRenderDPI = 96

// PageRenderer rasterizes every page of a PDF to PNG, in page order.
type PageRenderer interface {
	RenderPages(ctx context.Context, path string, dpi float64) ([][]byte, error)
}

// FitzRenderer renders pages with MuPDF.
type FitzRenderer struct{}

func (FitzRenderer) RenderPages(ctx context.Context, path string, dpi float64) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rendering: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		png, err := doc.ImagePNG(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}
		pages = append(pages, png)
	}
	return pages, nil
}

// PDFExtractor reads structure with pdfcpu and renders pages with a
// PageRenderer.
type PDFExtractor struct {
	Renderer PageRenderer
	DPI      float64
}

// pdfFacts is everything pdfcpu tells us about a document.
type pdfFacts struct {
	pages int
	fonts map[string]struct{}
	video bool
	audio bool
}

func readPDFContext(path string) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (e *PDFExtractor) CountSlides(_ context.Context, source string) (int, error) {
	pctx, err := readPDFContext(source)
	if err != nil {
		return 0, extractionErr(models.FormatPDF, ReasonMalformed, err)
	}
	return pctx.PageCount, nil
}

func (e *PDFExtractor) Extract(ctx context.Context, source string) (*models.ExtractionResult, error) {
	pctx, err := readPDFContext(source)
	if err != nil {
		return nil, extractionErr(models.FormatPDF, ReasonMalformed, err)
	}
	facts, err := inspectPDF(pctx)
	if err != nil {
		return nil, extractionErr(models.FormatPDF, ReasonMalformed, err)
	}

	res := &models.ExtractionResult{
		SlideCount:      facts.pages,
		Fonts:           sortedSet(facts.fonts),
		VideoPresent:    facts.video,
		AudioPresent:    facts.audio,
		MediaConfidence: models.ConfidenceHigh,
	}

	if e.Renderer == nil {
		res.Rendering = models.RenderingInfo{Available: false, Note: "no PDF renderer is configured"}
		return res, nil
	}
	dpi := e.DPI
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	images, err := e.Renderer.RenderPages(ctx, source, dpi)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, extractionErr(models.FormatPDF, ReasonRenderFailed, err)
	}
	if len(images) != facts.pages {
		return nil, extractionErr(models.FormatPDF, ReasonRenderFailed,
			fmt.Errorf("rendered %d pages but the document has %d", len(images), facts.pages))
	}
	res.SlideImages = images
	res.Rendering = models.RenderingInfo{Available: true}
	slog.Debug("Rendered PDF pages.", "pages", len(images), "dpi", dpi)
	return res, nil
}

func inspectPDF(pctx *model.Context) (*pdfFacts, error) {
	facts := &pdfFacts{pages: pctx.PageCount, fonts: map[string]struct{}{}}
	for n := 1; n <= pctx.PageCount; n++ {
		pageDict, _, inherited, err := pctx.PageDict(n, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		if pageDict == nil {
			continue
		}

		var resources types.Dict
		if inherited != nil {
			resources = inherited.Resources
		}
		if obj, ok := pageDict.Find("Resources"); ok {
			if d, err := pctx.DereferenceDict(obj); err == nil && d != nil {
				resources = d
			}
		}
		collectFonts(pctx, resources, facts.fonts)
		collectMedia(pctx, pageDict, facts)
	}
	return facts, nil
}

func collectFonts(pctx *model.Context, resources types.Dict, into map[string]struct{}) {
	if resources == nil {
		return
	}
	obj, ok := resources.Find("Font")
	if !ok {
		return
	}
	fonts, err := pctx.DereferenceDict(obj)
	if err != nil || fonts == nil {
		return
	}
	for _, ref := range fonts {
		font, err := pctx.DereferenceDict(ref)
		if err != nil || font == nil {
			continue
		}
		if name := font.NameEntry("BaseFont"); name != nil {
			into[stripSubsetPrefix(*name)] = struct{}{}
		}
	}
}

func collectMedia(pctx *model.Context, pageDict types.Dict, facts *pdfFacts) {
	obj, ok := pageDict.Find("Annots")
	if !ok {
		return
	}
	annots, err := pctx.DereferenceArray(obj)
	if err != nil {
		return
	}
	for _, a := range annots {
		annot, err := pctx.DereferenceDict(a)
		if err != nil || annot == nil {
			continue
		}
		subtype := annot.NameEntry("Subtype")
		if subtype == nil {
			continue
		}
		switch *subtype {
		case "RichMedia", "Movie", "Screen":
			facts.video = true
		case "Sound":
			facts.audio = true
		}
	}
}

// stripSubsetPrefix turns "ABCDEF+Helvetica" into "Helvetica".
func stripSubsetPrefix(name string) string {
	if i := strings.Index(name, "+"); i >= 0 {
		return name[i+1:]
	}
	return name
}

package deck

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

const pptxRenderingNote = "server-side rendering is not available for PPTX"

// PPTXExtractor reads an Office Open XML presentation package.
type PPTXExtractor struct{}

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".wma": true, ".aac": true, ".ogg": true, ".mid": true,
}

func (e *PPTXExtractor) CountSlides(_ context.Context, source string) (int, error) {
	zr, err := zip.OpenReader(source)
	if err != nil {
		return 0, extractionErr(models.FormatPPTX, ReasonMalformed, err)
	}
	defer zr.Close()

	pres, err := readPresentation(&zr.Reader)
	if err != nil {
		return 0, extractionErr(models.FormatPPTX, ReasonMalformed, err)
	}
	return len(pres.SlideIDs), nil
}

func (e *PPTXExtractor) Extract(ctx context.Context, source string) (*models.ExtractionResult, error) {
	zr, err := zip.OpenReader(source)
	if err != nil {
		return nil, extractionErr(models.FormatPPTX, ReasonMalformed, err)
	}
	defer zr.Close()

	pres, err := readPresentation(&zr.Reader)
	if err != nil {
		return nil, extractionErr(models.FormatPPTX, ReasonMalformed, err)
	}
	presRels, err := readRelationships(&zr.Reader, "ppt/_rels/presentation.xml.rels")
	if err != nil {
		return nil, extractionErr(models.FormatPPTX, ReasonMalformed, err)
	}
	targets := make(map[string]string, len(presRels.Relationships))
	for _, r := range presRels.Relationships {
		targets[r.ID] = resolvePart("ppt", r.Target)
	}

	res := &models.ExtractionResult{
		SlideCount:      len(pres.SlideIDs),
		MediaConfidence: models.ConfidenceHigh,
		Rendering:       models.RenderingInfo{Available: false, Note: pptxRenderingNote},
	}
	fonts := map[string]struct{}{}
	for i, sld := range pres.SlideIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, ok := targets[sld.RID]
		if !ok {
			return nil, extractionErr(models.FormatPPTX, ReasonMalformed,
				fmt.Errorf("slide %d: no relationship %q", i+1, sld.RID))
		}
		if err := collectRunFonts(&zr.Reader, part, fonts); err != nil {
			return nil, extractionErr(models.FormatPPTX, ReasonMalformed, fmt.Errorf("slide %d: %w", i+1, err))
		}
		video, audio, err := slideMedia(&zr.Reader, part)
		if err != nil {
			return nil, extractionErr(models.FormatPPTX, ReasonMalformed, fmt.Errorf("slide %d: %w", i+1, err))
		}
		res.VideoPresent = res.VideoPresent || video
		res.AudioPresent = res.AudioPresent || audio
	}
	res.Fonts = sortedSet(fonts)
	return res, nil
}

func readPresentation(zr *zip.Reader) (*presentationXML, error) {
	var pres presentationXML
	if err := decodeZipXML(zr, "ppt/presentation.xml", &pres); err != nil {
		return nil, err
	}
	return &pres, nil
}

// readRelationships returns an empty set when the part has no rels file.
func readRelationships(zr *zip.Reader, name string) (*relationshipsXML, error) {
	var rels relationshipsXML
	err := decodeZipXML(zr, name, &rels)
	if errors.Is(err, errPartMissing) {
		return &rels, nil
	}
	if err != nil {
		return nil, err
	}
	return &rels, nil
}

var errPartMissing = errors.New("package part missing")

func openZipPart(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("%w: %s", errPartMissing, name)
}

func decodeZipXML(zr *zip.Reader, name string, v any) error {
	rc, err := openZipPart(zr, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// collectRunFonts adds the typeface of every a:latin element inside a run's
// properties. Theme references such as "+mn-lt" are not font names and are
// skipped.
func collectRunFonts(zr *zip.Reader, part string, into map[string]struct{}) error {
	rc, err := openZipPart(zr, part)
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var stack []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", part, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "latin" && len(stack) > 0 && stack[len(stack)-1] == "rPr" {
				for _, a := range t.Attr {
					if a.Name.Local == "typeface" && a.Value != "" && !strings.HasPrefix(a.Value, "+") {
						into[a.Value] = struct{}{}
					}
				}
			}
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}

// slideMedia inspects a slide's relationships for embedded media.
func slideMedia(zr *zip.Reader, part string) (video, audio bool, err error) {
	dir, file := path.Split(part)
	rels, err := readRelationships(zr, path.Join(dir, "_rels", file+".rels"))
	if err != nil {
		return false, false, err
	}
	for _, r := range rels.Relationships {
		switch {
		case strings.HasSuffix(r.Type, "/video"):
			video = true
		case strings.HasSuffix(r.Type, "/audio"):
			audio = true
		case strings.HasSuffix(r.Type, "/media"):
			if audioExtensions[strings.ToLower(path.Ext(r.Target))] {
				audio = true
			} else {
				video = true
			}
		}
	}
	return video, audio, nil
}

// resolvePart resolves a relationship target against the directory of the
// part that owns it.
func resolvePart(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(baseDir, target))
}

package deck

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Lllllllleong/deckscreen/internal/testutil"
)

func writeZip(t *testing.T, dir, name string, files map[string]string) string {
	return testutil.WriteZip(t, dir, name, files)
}

func writeFile(t *testing.T, dir, name, content string) string {
	return testutil.WriteFile(t, dir, name, content)
}

func buildPDF(t *testing.T, dir string, pages int) string {
	return testutil.WritePDF(t, dir, "deck.pdf", pages, 0)
}

const (
	nsP     = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	nsA     = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
	nsR     = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	nsRel   = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
	relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
)

func pptxSlide(fonts ...string) string {
	var runs strings.Builder
	for _, f := range fonts {
		fmt.Fprintf(&runs, `<a:r><a:rPr lang="en-US"><a:latin typeface="%s"/></a:rPr><a:t>text</a:t></a:r>`, f)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<p:sld %s %s %s><p:cSld><p:spTree><p:sp><p:txBody><a:bodyPr/><a:p>%s</a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`,
		nsP, nsA, nsR, runs.String())
}

func pptxRels(rels ...[2]string) string {
	var b strings.Builder
	for i, r := range rels {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="%s%s" Target="%s"/>`, i+1, relBase, r[0], r[1])
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Relationships %s>%s</Relationships>`, nsRel, b.String())
}

// buildPPTX creates a package with one slide per entry in slides. The map
// value of extraRels adds relationships to the slide with that number.
func buildPPTX(t *testing.T, dir string, slides []string, extraRels map[int][][2]string) string {
	t.Helper()
	files := map[string]string{}
	var ids strings.Builder
	var presRels [][2]string
	for i, s := range slides {
		n := i + 1
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 255+n, n)
		presRels = append(presRels, [2]string{"slide", fmt.Sprintf("slides/slide%d.xml", n)})
		files[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = s
		if rels, ok := extraRels[n]; ok {
			files[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = pptxRels(rels...)
		}
	}
	files["ppt/presentation.xml"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<p:presentation %s %s><p:sldIdLst>%s</p:sldIdLst></p:presentation>`, nsP, nsR, ids.String())
	files["ppt/_rels/presentation.xml.rels"] = pptxRels(presRels...)
	return writeZip(t, dir, "deck.pptx", files)
}

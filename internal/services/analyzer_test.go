package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/deckscreen/internal/deck"
	"github.com/Lllllllleong/deckscreen/internal/judge"
	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/slidestore"
	"github.com/Lllllllleong/deckscreen/internal/testutil"
)

// pageRenderer fakes MuPDF: one PNG per requested page.
type pageRenderer struct {
	pages int
	calls int
}

func (r *pageRenderer) RenderPages(context.Context, string, float64) ([][]byte, error) {
	r.calls++
	return pngs(r.pages), nil
}

func newTestAnalyzer(t *testing.T, renderer deck.PageRenderer, j judge.Service) (*AnalyzerFunction, *slidestore.MemoryStore) {
	t.Helper()
	store := slidestore.NewMemoryStore()
	registry := deck.NewRegistry(deck.Deps{Renderer: renderer})
	return NewAnalyzerWith(registry, j, store, testPolicy()), store
}

func submission(source string) models.Submission {
	return models.Submission{Source: source, ProcessingID: "proc-1"}
}

func TestProcessAllChecksPass(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "deck.pdf", 3, 0)
	j := newScriptedJudge(fixedJudgments(scenarioA))
	a, store := newTestAnalyzer(t, &pageRenderer{pages: 3}, j)

	resp, err := a.Process(context.Background(), submission(path))
	require.NoError(t, err)

	assert.Equal(t, models.FormatPDF, resp.DeckFormat)
	assert.Nil(t, resp.Rejection)
	assert.True(t, resp.DeterministicChecks.AllPassed())
	require.NotNil(t, resp.FileAnalysis)
	assert.Equal(t, 3, resp.FileAnalysis.NumberOfSlides)
	assert.Equal(t, []string{"Helvetica"}, resp.FileAnalysis.FontsUsed)
	assert.True(t, resp.FileAnalysis.SlideRendering.Available)

	p := resp.ProbabilisticChecks
	require.NotNil(t, p)
	assert.Equal(t, 6, p.BulletPointCheck.TotalBulletPoints)
	assert.Equal(t, 3, p.ImageCheck.ImageCount)
	assert.True(t, p.TitleSlideCheck.HasTitleSlide)
	require.NotNil(t, p.ComplianceCheck.ComplianceScore)
	assert.InDelta(t, 1.0, *p.ComplianceCheck.ComplianceScore, 1e-9)
	assert.Len(t, p.SlideAnalyses, 3)

	assert.True(t, resp.Status.AllTestsPassed)
	assert.True(t, resp.Status.SubmissionAllowed)
	assert.Equal(t, "Your presentation is accepted.", resp.Status.NextSteps)

	require.Len(t, resp.Slides, 3)
	for i, s := range resp.Slides {
		assert.Equal(t, i+1, s.SlideNumber)
		assert.Equal(t, fmt.Sprintf("proc-1/%d", i+1), s.ImageRef)
		got, err := store.Get(context.Background(), "proc-1", s.SlideNumber)
		require.NoError(t, err)
		assert.Equal(t, pngs(3)[i], got)
	}
}

func TestProcessAggregatesOnlySuccessfulSlides(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "deck.pdf", 3, 0)
	answer := fixedJudgments(scenarioA)
	j := newScriptedJudge(func(ctx context.Context, slide, attempt int) (*models.SlideJudgment, error) {
		if slide == 2 {
			return nil, &judge.TransientError{Err: errors.New("upstream unavailable")}
		}
		return answer(ctx, slide, attempt)
	})
	a, _ := newTestAnalyzer(t, &pageRenderer{pages: 3}, j)

	resp, err := a.Process(context.Background(), submission(path))
	require.NoError(t, err)

	p := resp.ProbabilisticChecks
	require.NotNil(t, p)
	require.Len(t, p.SlideAnalyses, 2)
	assert.Equal(t, 1, p.SlideAnalyses[0].SlideNumber)
	assert.Equal(t, 3, p.SlideAnalyses[1].SlideNumber)
	assert.Equal(t, []int{2}, p.FailedSlides)
	assert.Equal(t, 2, p.BulletPointCheck.TotalBulletPoints)
	assert.Equal(t, testPolicy().MaxRetries, j.Calls(2))

	// The failed slide still has a stored image.
	assert.Len(t, resp.Slides, 3)
}

func TestProcessOversizedDeckStillReportsEveryRule(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "big.pdf", 2, 60*1024*1024)
	j := newScriptedJudge(fixedJudgments(scenarioA))
	renderer := &pageRenderer{pages: 2}
	a, _ := newTestAnalyzer(t, renderer, j)

	resp, err := a.Process(context.Background(), submission(path))
	require.NoError(t, err)

	d := resp.DeterministicChecks
	assert.False(t, d.SizeCheck.Passed)
	assert.Contains(t, d.SizeCheck.Message, "exceeds the 50 MB limit")
	assert.True(t, d.FormatCheck.Passed)
	assert.True(t, d.SlideCountCheck.Passed)
	assert.Equal(t, 2, d.SlideCountCheck.ObservedValue)

	require.NotNil(t, resp.Rejection)
	assert.Equal(t, RejectTooLarge, resp.Rejection.Reason)
	assert.Nil(t, resp.ProbabilisticChecks)
	assert.Nil(t, resp.FileAnalysis)
	assert.Empty(t, resp.Slides)
	assert.False(t, resp.Status.SubmissionAllowed)
	assert.False(t, resp.Status.AllTestsPassed)
	assert.Zero(t, j.TotalCalls())
	assert.Zero(t, renderer.calls)
}

func TestProcessCanvaAbortsBeforeJudging(t *testing.T) {
	j := newScriptedJudge(fixedJudgments(scenarioA))
	a, _ := newTestAnalyzer(t, &pageRenderer{}, j)

	resp, err := a.Process(context.Background(), submission("https://www.canva.com/design/DAF123/view"))
	assert.Nil(t, resp)
	var ee *deck.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, deck.ReasonUnsupported, ee.Reason)
	assert.Equal(t, models.FormatCanva, ee.Format)
	assert.Zero(t, j.TotalCalls())
}

func TestProcessRejectsUnsupportedFormat(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "notes.txt", "hello")
	j := newScriptedJudge(fixedJudgments(scenarioA))
	a, _ := newTestAnalyzer(t, &pageRenderer{}, j)

	resp, err := a.Process(context.Background(), submission(path))
	require.NoError(t, err)
	require.NotNil(t, resp.Rejection)
	assert.Equal(t, RejectUnsupportedFormat, resp.Rejection.Reason)
	assert.Equal(t, models.FormatUnsupported, resp.DeckFormat)
	assert.False(t, resp.DeterministicChecks.FormatCheck.Passed)
	assert.False(t, resp.DeterministicChecks.SlideCountCheck.Passed)
	assert.Nil(t, resp.DeterministicChecks.SlideCountCheck.ObservedValue)
	assert.False(t, resp.Status.SubmissionAllowed)
	assert.True(t, strings.HasPrefix(resp.Status.NextSteps, resp.Rejection.Message))
	assert.Zero(t, j.TotalCalls())
}

func TestProcessRejectsFormatOutsidePolicy(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "deck.md", "# One\n---\n# Two\n")
	j := newScriptedJudge(fixedJudgments(scenarioA))
	a, _ := newTestAnalyzer(t, &pageRenderer{}, j)

	resp, err := a.Process(context.Background(), submission(path))
	require.NoError(t, err)
	require.NotNil(t, resp.Rejection)
	assert.Equal(t, RejectFormatNotAllowed, resp.Rejection.Reason)
	assert.Equal(t, models.FormatMarkdown, resp.DeckFormat)
	assert.Equal(t, 2, resp.DeterministicChecks.SlideCountCheck.ObservedValue)
	assert.Zero(t, j.TotalCalls())
}

func TestProcessTooManySlidesIsNotAllowed(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "long.pdf", 31, 0)
	j := newScriptedJudge(func(_ context.Context, slide, _ int) (*models.SlideJudgment, error) {
		return &models.SlideJudgment{SlideNumber: slide, IsTitleSlide: slide == 1, Images: 1, AdheresToBestPractices: true}, nil
	})
	a, _ := newTestAnalyzer(t, &pageRenderer{pages: 31}, j)

	resp, err := a.Process(context.Background(), submission(path))
	require.NoError(t, err)
	assert.Nil(t, resp.Rejection)
	assert.False(t, resp.DeterministicChecks.SlideCountCheck.Passed)
	assert.Equal(t, 31, resp.FileAnalysis.NumberOfSlides)
	assert.True(t, resp.ProbabilisticChecks.AllPassed())
	assert.False(t, resp.Status.SubmissionAllowed)
	assert.Contains(t, resp.Status.NextSteps, "Too many slides")
}

func TestProcessPPTXWithoutRenderingIsIndeterminate(t *testing.T) {
	const ns = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	const relNS = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
	slide := `<?xml version="1.0" encoding="UTF-8"?><p:sld ` + ns + `><p:cSld><p:spTree/></p:cSld></p:sld>`
	path := testutil.WriteZip(t, t.TempDir(), "deck.pptx", map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0" encoding="UTF-8"?><p:presentation ` + ns +
			`><p:sldIdLst><p:sldId id="256" r:id="rId1"/><p:sldId id="257" r:id="rId2"/></p:sldIdLst></p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships ` + relNS + `>` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>` +
			`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>` +
			`</Relationships>`,
		"ppt/slides/slide1.xml": slide,
		"ppt/slides/slide2.xml": slide,
	})
	j := newScriptedJudge(fixedJudgments(scenarioA))
	a, _ := newTestAnalyzer(t, &pageRenderer{}, j)

	resp, err := a.Process(context.Background(), submission(path))
	require.NoError(t, err)
	assert.Equal(t, models.FormatPPTX, resp.DeckFormat)
	assert.Equal(t, 2, resp.FileAnalysis.NumberOfSlides)
	assert.False(t, resp.FileAnalysis.SlideRendering.Available)
	assert.NotEmpty(t, resp.FileAnalysis.SlideRendering.Note)
	assert.Equal(t, models.VerdictIndeterminate, resp.ProbabilisticChecks.ComplianceCheck.Verdict)
	assert.Empty(t, resp.Slides)
	assert.True(t, resp.Status.SubmissionAllowed)
	assert.False(t, resp.Status.AllTestsPassed)
	assert.Zero(t, j.TotalCalls())
}

func TestProcessMissingFileIsInvalidSource(t *testing.T) {
	a, _ := newTestAnalyzer(t, &pageRenderer{}, newScriptedJudge(fixedJudgments(scenarioA)))
	_, err := a.Process(context.Background(), submission("/does/not/exist.pdf"))

	var ee *deck.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, deck.ReasonInvalidSource, ee.Reason)
	assert.Equal(t, 400, HTTPStatus(err))
}

func TestProcessRendererMismatchIsExtractionError(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "deck.pdf", 3, 0)
	a, _ := newTestAnalyzer(t, &pageRenderer{pages: 2}, newScriptedJudge(fixedJudgments(scenarioA)))

	_, err := a.Process(context.Background(), submission(path))
	var ee *deck.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, deck.ReasonRenderFailed, ee.Reason)
	assert.Equal(t, 422, HTTPStatus(err))
}

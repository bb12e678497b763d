package services

import (
	"strings"

	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/slidestore"
)

const (
	acceptedMessage = "Your presentation is accepted."
	reviewMessage   = "Please review the feedback and make necessary changes."
)

// AssemblyInput is everything the response is built from. Extraction and
// Probabilistic are nil when the deck was rejected before extraction.
type AssemblyInput struct {
	ProcessingID  string
	Format        models.DeckFormat
	Deterministic models.DeterministicCheckResult
	Extraction    *models.ExtractionResult
	Probabilistic *models.ProbabilisticCheckResult
	Persisted     []int
	Rejection     *models.Rejection
}

// Assemble builds the report. It is pure.
func Assemble(in AssemblyInput) *models.AnalysisResponse {
	resp := &models.AnalysisResponse{
		ProcessingID:        in.ProcessingID,
		DeckFormat:          in.Format,
		DeterministicChecks: in.Deterministic,
		ProbabilisticChecks: in.Probabilistic,
		Slides:              make([]models.SlideInfo, 0, len(in.Persisted)),
		Rejection:           in.Rejection,
	}
	if in.Extraction != nil {
		fonts := in.Extraction.Fonts
		if fonts == nil {
			fonts = []string{}
		}
		resp.FileAnalysis = &models.FileAnalysisResult{
			NumberOfSlides:  in.Extraction.SlideCount,
			FontsUsed:       fonts,
			VideoPresent:    in.Extraction.VideoPresent,
			AudioPresent:    in.Extraction.AudioPresent,
			MediaConfidence: in.Extraction.MediaConfidence,
			SlideRendering:  in.Extraction.Rendering,
		}
	}
	for _, n := range in.Persisted {
		resp.Slides = append(resp.Slides, models.SlideInfo{
			SlideNumber: n,
			ImageRef:    slidestore.Ref(in.ProcessingID, n),
		})
	}
	resp.Status = buildStatus(in)
	return resp
}

// buildStatus derives the submission status. A deck may be submitted when it
// meets every hard rule; it passes every test only if, in addition, every
// aggregate check has a pass verdict.
func buildStatus(in AssemblyInput) models.Status {
	allowed := in.Rejection == nil && in.Deterministic.AllPassed()
	allPassed := allowed && in.Probabilistic != nil && in.Probabilistic.AllPassed()
	if allPassed {
		return models.Status{AllTestsPassed: true, SubmissionAllowed: true, NextSteps: acceptedMessage}
	}

	var steps []string
	if in.Rejection != nil {
		steps = append(steps, in.Rejection.Message)
	}
	for _, c := range []models.CheckResult{in.Deterministic.FormatCheck, in.Deterministic.SizeCheck, in.Deterministic.SlideCountCheck} {
		if !c.Passed && c.Message != "" && (in.Rejection == nil || c.Message != in.Rejection.Message) {
			steps = append(steps, c.Message)
		}
	}
	if p := in.Probabilistic; p != nil {
		if p.ComplianceCheck.Verdict == models.VerdictIndeterminate {
			steps = append(steps, p.ComplianceCheck.Message)
		} else {
			for _, c := range []struct {
				verdict models.Verdict
				message string
			}{
				{p.TitleSlideCheck.Verdict, p.TitleSlideCheck.Message},
				{p.BulletPointCheck.Verdict, p.BulletPointCheck.Message},
				{p.ImageCheck.Verdict, p.ImageCheck.Message},
				{p.ComplianceCheck.Verdict, p.ComplianceCheck.Message},
			} {
				if c.verdict != models.VerdictPass {
					steps = append(steps, c.message)
				}
			}
		}
	}
	steps = append(steps, reviewMessage)
	return models.Status{
		AllTestsPassed:    false,
		SubmissionAllowed: allowed,
		NextSteps:         strings.Join(steps, " "),
	}
}

package checks

import (
	"fmt"
	"sort"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

// Thresholds configure the aggregate checks.
type Thresholds struct {
	// MaxBulletPoints applies to the deck total, not to each slide.
	MaxBulletPoints     int
	ComplianceThreshold float64
}

// Aggregate reduces slide judgments into deck-level checks. judgments is
// indexed by slide position; nil entries are slides whose analysis failed and
// contribute nothing. With zero successful judgments every check is
// indeterminate.
func Aggregate(judgments []*models.SlideJudgment, t Thresholds) models.ProbabilisticCheckResult {
	res := models.ProbabilisticCheckResult{
		SlideAnalyses: []models.SlideJudgment{},
		FailedSlides:  []int{},
	}

	var (
		hasTitle  bool
		bullets   int
		images    int
		adherent  int
		succeeded int
	)
	for i, j := range judgments {
		if j == nil {
			res.FailedSlides = append(res.FailedSlides, i+1)
			continue
		}
		succeeded++
		if j.IsTitleSlide {
			hasTitle = true
		}
		bullets += j.BulletPoints
		images += j.Images
		if j.AdheresToBestPractices {
			adherent++
		}
		res.SlideAnalyses = append(res.SlideAnalyses, *j)
	}
	sort.SliceStable(res.SlideAnalyses, func(a, b int) bool {
		return res.SlideAnalyses[a].SlideNumber < res.SlideAnalyses[b].SlideNumber
	})

	if succeeded == 0 {
		const msg = "No slide could be analyzed; result is indeterminate."
		res.TitleSlideCheck = models.TitleSlideCheck{Verdict: models.VerdictIndeterminate, Message: msg}
		res.BulletPointCheck = models.BulletPointCheck{Verdict: models.VerdictIndeterminate, Limit: t.MaxBulletPoints, Message: msg}
		res.ImageCheck = models.ImageCheck{Verdict: models.VerdictIndeterminate, Message: msg}
		res.ComplianceCheck = models.ComplianceCheck{Verdict: models.VerdictIndeterminate, Threshold: t.ComplianceThreshold, Message: msg}
		return res
	}

	res.TitleSlideCheck = models.TitleSlideCheck{
		Verdict:       models.VerdictOf(hasTitle),
		HasTitleSlide: hasTitle,
		Message:       "Title slide is present.",
	}
	if !hasTitle {
		res.TitleSlideCheck.Message = "Title slide is missing."
	}

	fewBullets := bullets <= t.MaxBulletPoints
	res.BulletPointCheck = models.BulletPointCheck{
		Verdict:            models.VerdictOf(fewBullets),
		HasFewBulletPoints: fewBullets,
		TotalBulletPoints:  bullets,
		Limit:              t.MaxBulletPoints,
		Message:            fmt.Sprintf("Total bullet points: %d (limit %d).", bullets, t.MaxBulletPoints),
	}

	res.ImageCheck = models.ImageCheck{
		Verdict:    models.VerdictOf(images > 0),
		HasImages:  images > 0,
		ImageCount: images,
		Message:    fmt.Sprintf("Total images: %d.", images),
	}

	score := float64(adherent) / float64(succeeded)
	compliant := score > t.ComplianceThreshold
	res.ComplianceCheck = models.ComplianceCheck{
		Verdict:         models.VerdictOf(compliant),
		Compliant:       compliant,
		ComplianceScore: &score,
		Threshold:       t.ComplianceThreshold,
		Message: fmt.Sprintf("%d of %d analyzed slides follow presentation best practices (score %.2f, threshold %.2f).",
			adherent, succeeded, score, t.ComplianceThreshold),
	}
	return res
}

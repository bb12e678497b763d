package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

var defaultThresholds = Thresholds{MaxBulletPoints: 10, ComplianceThreshold: 0.7}

func judgment(n int, title bool, bullets, images int, ok bool) *models.SlideJudgment {
	return &models.SlideJudgment{
		SlideNumber:            n,
		IsTitleSlide:           title,
		BulletPoints:           bullets,
		Images:                 images,
		AdheresToBestPractices: ok,
	}
}

func TestAggregateAllChecksPass(t *testing.T) {
	res := Aggregate([]*models.SlideJudgment{
		judgment(1, true, 0, 1, true),
		judgment(2, false, 4, 0, true),
		judgment(3, false, 2, 2, true),
	}, defaultThresholds)

	assert.True(t, res.TitleSlideCheck.HasTitleSlide)
	assert.Equal(t, 6, res.BulletPointCheck.TotalBulletPoints)
	assert.True(t, res.BulletPointCheck.HasFewBulletPoints)
	assert.Equal(t, 3, res.ImageCheck.ImageCount)
	require.NotNil(t, res.ComplianceCheck.ComplianceScore)
	assert.Equal(t, 1.0, *res.ComplianceCheck.ComplianceScore)
	assert.True(t, res.AllPassed())
	assert.Len(t, res.SlideAnalyses, 3)
	assert.Empty(t, res.FailedSlides)
}

func TestAggregateSkipsFailedSlides(t *testing.T) {
	res := Aggregate([]*models.SlideJudgment{
		judgment(1, true, 0, 1, true),
		nil,
		judgment(3, false, 2, 2, true),
	}, defaultThresholds)

	require.Len(t, res.SlideAnalyses, 2)
	assert.Equal(t, 1, res.SlideAnalyses[0].SlideNumber)
	assert.Equal(t, 3, res.SlideAnalyses[1].SlideNumber)
	assert.Equal(t, 2, res.BulletPointCheck.TotalBulletPoints)
	assert.Equal(t, []int{2}, res.FailedSlides)
	require.NotNil(t, res.ComplianceCheck.ComplianceScore)
	assert.Equal(t, 1.0, *res.ComplianceCheck.ComplianceScore)
}

func TestAggregateBulletLimitIsDeckWide(t *testing.T) {
	res := Aggregate([]*models.SlideJudgment{
		judgment(1, true, 6, 1, true),
		judgment(2, false, 5, 0, true),
	}, defaultThresholds)

	assert.Equal(t, 11, res.BulletPointCheck.TotalBulletPoints)
	assert.Equal(t, models.VerdictFail, res.BulletPointCheck.Verdict)
}

func TestAggregateComplianceThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name      string
		adherent  int
		total     int
		threshold float64
		want      models.Verdict
	}{
		{"exactly at threshold fails", 7, 10, 0.7, models.VerdictFail},
		{"above threshold passes", 8, 10, 0.7, models.VerdictPass},
		{"none adherent", 0, 4, 0.7, models.VerdictFail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var js []*models.SlideJudgment
			for i := 0; i < tc.total; i++ {
				js = append(js, judgment(i+1, i == 0, 0, 1, i < tc.adherent))
			}
			res := Aggregate(js, Thresholds{MaxBulletPoints: 10, ComplianceThreshold: tc.threshold})
			assert.Equal(t, tc.want, res.ComplianceCheck.Verdict)
		})
	}
}

func TestAggregateIndeterminateWithoutJudgments(t *testing.T) {
	for name, in := range map[string][]*models.SlideJudgment{
		"no slides":      nil,
		"all slides failed": {nil, nil},
	} {
		t.Run(name, func(t *testing.T) {
			res := Aggregate(in, defaultThresholds)
			assert.Equal(t, models.VerdictIndeterminate, res.ComplianceCheck.Verdict)
			assert.Nil(t, res.ComplianceCheck.ComplianceScore)
			assert.Equal(t, models.VerdictIndeterminate, res.TitleSlideCheck.Verdict)
			assert.Equal(t, models.VerdictIndeterminate, res.BulletPointCheck.Verdict)
			assert.Equal(t, models.VerdictIndeterminate, res.ImageCheck.Verdict)
			assert.False(t, res.AllPassed())
			assert.NotNil(t, res.SlideAnalyses)
		})
	}
}

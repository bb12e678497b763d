package models

// CheckResult is the outcome of a single deterministic policy rule.
type CheckResult struct {
	Passed        bool   `json:"passed"`
	ObservedValue any    `json:"observed_value"`
	Message       string `json:"message"`
}

// DeterministicCheckResult always carries all three rule outcomes.
type DeterministicCheckResult struct {
	FormatCheck     CheckResult `json:"format_check"`
	SizeCheck       CheckResult `json:"size_check"`
	SlideCountCheck CheckResult `json:"slide_count_check"`
}

// AllPassed reports whether every deterministic rule passed.
func (d DeterministicCheckResult) AllPassed() bool {
	return d.FormatCheck.Passed && d.SizeCheck.Passed && d.SlideCountCheck.Passed
}

// Verdict is the outcome of an aggregate check over slide judgments.
type Verdict string

const (
	VerdictPass          Verdict = "pass"
	VerdictFail          Verdict = "fail"
	VerdictIndeterminate Verdict = "indeterminate"
)

// VerdictOf maps a boolean outcome onto a verdict.
func VerdictOf(ok bool) Verdict {
	if ok {
		return VerdictPass
	}
	return VerdictFail
}

type TitleSlideCheck struct {
	Verdict       Verdict `json:"verdict"`
	HasTitleSlide bool    `json:"has_title_slide"`
	Message       string  `json:"message"`
}

type BulletPointCheck struct {
	Verdict            Verdict `json:"verdict"`
	HasFewBulletPoints bool    `json:"has_few_bullet_points"`
	TotalBulletPoints  int     `json:"total_bullet_points"`
	Limit              int     `json:"limit"`
	Message            string  `json:"message"`
}

type ImageCheck struct {
	Verdict    Verdict `json:"verdict"`
	HasImages  bool    `json:"has_images"`
	ImageCount int     `json:"image_count"`
	Message    string  `json:"message"`
}

// ComplianceCheck holds the best-practice score. Score is nil when no slide
// was judged successfully.
type ComplianceCheck struct {
	Verdict         Verdict  `json:"verdict"`
	Compliant       bool     `json:"compliant"`
	ComplianceScore *float64 `json:"compliance_score"`
	Threshold       float64  `json:"threshold"`
	Message         string   `json:"message"`
}

// ProbabilisticCheckResult aggregates the per-slide judgments. SlideAnalyses
// is ordered by ascending slide number and omits slides whose analysis failed.
type ProbabilisticCheckResult struct {
	TitleSlideCheck  TitleSlideCheck  `json:"title_slide_check"`
	BulletPointCheck BulletPointCheck `json:"bullet_point_check"`
	ImageCheck       ImageCheck       `json:"image_check"`
	ComplianceCheck  ComplianceCheck  `json:"compliance_check"`
	SlideAnalyses    []SlideJudgment  `json:"slide_analyses"`
	FailedSlides     []int            `json:"failed_slides"`
}

// AllPassed reports whether every aggregate check has a pass verdict.
func (p ProbabilisticCheckResult) AllPassed() bool {
	return p.TitleSlideCheck.Verdict == VerdictPass &&
		p.BulletPointCheck.Verdict == VerdictPass &&
		p.ImageCheck.Verdict == VerdictPass &&
		p.ComplianceCheck.Verdict == VerdictPass
}

type FileAnalysisResult struct {
	NumberOfSlides  int           `json:"number_of_slides"`
	FontsUsed       []string      `json:"fonts_used"`
	VideoPresent    bool          `json:"video_present"`
	AudioPresent    bool          `json:"audio_present"`
	MediaConfidence string        `json:"media_confidence"`
	SlideRendering  RenderingInfo `json:"slide_rendering"`
}

type Status struct {
	AllTestsPassed    bool   `json:"all_tests_passed"`
	SubmissionAllowed bool   `json:"submission_allowed"`
	NextSteps         string `json:"next_steps"`
}

// SlideInfo points at a stored slide image. ImageRef is opaque to clients and
// resolved by the slide image endpoint.
type SlideInfo struct {
	SlideNumber int    `json:"slide_number"`
	ImageRef    string `json:"image_ref"`
}

// Rejection explains why a deck was turned away before extraction.
type Rejection struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// AnalysisResponse is the report returned for a submission.
type AnalysisResponse struct {
	ProcessingID        string                    `json:"processing_id"`
	DeckFormat          DeckFormat                `json:"deck_format"`
	DeterministicChecks DeterministicCheckResult  `json:"deterministic_checks"`
	FileAnalysis        *FileAnalysisResult       `json:"file_analysis,omitempty"`
	ProbabilisticChecks *ProbabilisticCheckResult `json:"probabilistic_checks,omitempty"`
	Status              Status                    `json:"status"`
	Slides              []SlideInfo               `json:"slides"`
	Rejection           *Rejection                `json:"rejection,omitempty"`
}

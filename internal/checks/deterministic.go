// Package checks holds the rule-based validation of a deck and the reduction
// of per-slide judgments into deck-level checks. Everything here is pure.
package checks

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

// DeckFacts are the observed properties the deterministic rules look at.
type DeckFacts struct {
	// Extension is the lower-case file extension, or the resolved format for
	// URL sources.
	Extension string
	Remote    bool
	SizeMB    float64
	// SlideCount is negative when the count could not be determined.
	SlideCount int
}

// Limits are the thresholds the deterministic rules are evaluated against.
type Limits struct {
	AllowedFormats []string
	MaxSizeMB      float64
	MaxSlides      int
}

// FormatCheck accepts the extension when it is on the allow-list.
func FormatCheck(extension string, allowed []string) models.CheckResult {
	ext := strings.ToLower(extension)
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return models.CheckResult{Passed: true, ObservedValue: ext, Message: "Format is acceptable."}
		}
	}
	return models.CheckResult{
		Passed:        false,
		ObservedValue: ext,
		Message:       fmt.Sprintf("Unsupported file format %q; accepted formats are %s.", ext, strings.Join(allowed, ", ")),
	}
}

// SizeCheck passes when the deck is no larger than limitMB.
func SizeCheck(sizeMB, limitMB float64) models.CheckResult {
	if sizeMB <= limitMB {
		return models.CheckResult{Passed: true, ObservedValue: sizeMB, Message: "File size is within limits."}
	}
	return models.CheckResult{
		Passed:        false,
		ObservedValue: sizeMB,
		Message:       fmt.Sprintf("File size %.2f MB exceeds the %.0f MB limit.", sizeMB, limitMB),
	}
}

// SlideCountCheck passes when the deck has at most limit slides.
func SlideCountCheck(count, limit int) models.CheckResult {
	if count < 0 {
		return models.CheckResult{Passed: false, ObservedValue: nil, Message: "Slide count could not be determined."}
	}
	if count <= limit {
		return models.CheckResult{Passed: true, ObservedValue: count, Message: "Slide count is within limits."}
	}
	return models.CheckResult{
		Passed:        false,
		ObservedValue: count,
		Message:       fmt.Sprintf("Too many slides: %d exceeds the limit of %d.", count, limit),
	}
}

// remoteFormatCheck accepts any deck that resolved to a known cloud format.
// Whether it can actually be extracted is decided by its extractor.
func remoteFormatCheck(format string) models.CheckResult {
	if format == string(models.FormatUnsupported) || format == "" {
		return models.CheckResult{Passed: false, ObservedValue: format, Message: "Unsupported deck URL."}
	}
	return models.CheckResult{Passed: true, ObservedValue: format, Message: "URL format accepted."}
}

// Gate runs the two rules that can be evaluated before extraction.
func Gate(facts DeckFacts, limits Limits) (format, size models.CheckResult) {
	if facts.Remote {
		return remoteFormatCheck(facts.Extension), models.CheckResult{
			Passed:        true,
			ObservedValue: 0,
			Message:       "Size check not applicable for URLs.",
		}
	}
	return FormatCheck(facts.Extension, limits.AllowedFormats), SizeCheck(facts.SizeMB, limits.MaxSizeMB)
}

// Validate runs every deterministic rule. No rule is skipped because another
// one failed.
func Validate(facts DeckFacts, limits Limits) models.DeterministicCheckResult {
	format, size := Gate(facts, limits)
	return models.DeterministicCheckResult{
		FormatCheck:     format,
		SizeCheck:       size,
		SlideCountCheck: SlideCountCheck(facts.SlideCount, limits.MaxSlides),
	}
}

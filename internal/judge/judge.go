// Package judge asks a vision model for a structured verdict on one rendered
// slide. Providers differ only in transport; every one of them shares the
// prompt, the response parsing and the error classification in this file.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Lllllllleong/deckscreen/internal/gcp"
	"github.com/Lllllllleong/deckscreen/internal/models"
)

// Service judges a single slide image.
type Service interface {
	Analyze(ctx context.Context, image []byte, slideNumber int) (*models.SlideJudgment, error)
}

// TransientError marks a failure worth retrying: network trouble, timeouts,
// rate limiting and server-side errors.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient judgment failure: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// MalformedResponseError means the model answered but the answer is not a
// usable judgment. Retrying does not help.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed judgment response: " + e.Reason
}

// IsTransient reports whether err, or anything it wraps, is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Config selects and configures a provider.
type Config struct {
	Provider      string
	Model         string
	ProjectID     string
	Region        string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

type constructor func(ctx context.Context, cfg Config) (Service, error)

var providers = map[string]constructor{
	"vertex": func(ctx context.Context, cfg Config) (Service, error) { return NewVertex(ctx, cfg) },
	"gemini": func(ctx context.Context, cfg Config) (Service, error) { return NewGemini(ctx, cfg) },
	"openai": func(ctx context.Context, cfg Config) (Service, error) { return NewOpenAI(cfg) },
}

// Providers lists the accepted values of Config.Provider.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the Service named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Service, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	build, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown judge provider %q (want one of %s)", cfg.Provider, strings.Join(Providers(), ", "))
	}
	return build(ctx, cfg)
}

// UserPrompt is the per-slide instruction sent alongside the image.
func UserPrompt(slideNumber int) string {
	return fmt.Sprintf(gcp.SlideJudgeUserPrompt, slideNumber)
}

var fenceLine = regexp.MustCompile("(?m)^```[^\\n]*\\n|```$")

// StripCodeFences removes a surrounding markdown code fence, if any.
func StripCodeFences(s string) string {
	return strings.TrimSpace(fenceLine.ReplaceAllString(strings.TrimSpace(s), ""))
}

// rawJudgment uses pointers so missing keys can be told apart from zero
// values.
type rawJudgment struct {
	IsTitleSlide           *bool   `json:"is_title_slide"`
	BulletPoints           *int    `json:"bullet_points"`
	Images                 *int    `json:"images"`
	AdheresToBestPractices *bool   `json:"adheres_to_best_practices"`
	Suggestions            *string `json:"suggestions"`
}

// ParseJudgment turns a model answer into a SlideJudgment for slideNumber.
// Any parse failure, missing field or negative count is a
// MalformedResponseError.
func ParseJudgment(text string, slideNumber int) (*models.SlideJudgment, error) {
	cleaned := StripCodeFences(text)
	if cleaned == "" {
		return nil, &MalformedResponseError{Raw: text, Reason: "empty response"}
	}

	var raw rawJudgment
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, &MalformedResponseError{Raw: text, Reason: err.Error()}
	}

	var missing []string
	if raw.IsTitleSlide == nil {
		missing = append(missing, "is_title_slide")
	}
	if raw.BulletPoints == nil {
		missing = append(missing, "bullet_points")
	}
	if raw.Images == nil {
		missing = append(missing, "images")
	}
	if raw.AdheresToBestPractices == nil {
		missing = append(missing, "adheres_to_best_practices")
	}
	if raw.Suggestions == nil {
		missing = append(missing, "suggestions")
	}
	if len(missing) > 0 {
		return nil, &MalformedResponseError{Raw: text, Reason: "missing fields: " + strings.Join(missing, ", ")}
	}
	if *raw.BulletPoints < 0 || *raw.Images < 0 {
		return nil, &MalformedResponseError{Raw: text, Reason: "negative count"}
	}

	return &models.SlideJudgment{
		SlideNumber:            slideNumber,
		IsTitleSlide:           *raw.IsTitleSlide,
		BulletPoints:           *raw.BulletPoints,
		Images:                 *raw.Images,
		AdheresToBestPractices: *raw.AdheresToBestPractices,
		Suggestions:            *raw.Suggestions,
	}, nil
}

// contextTransient wraps context deadline errors as transient. A cancelled
// parent context is returned unchanged so callers stop.
func contextTransient(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}
	return err
}

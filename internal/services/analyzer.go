package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/deckscreen/internal/checks"
	"github.com/Lllllllleong/deckscreen/internal/config"
	"github.com/Lllllllleong/deckscreen/internal/deck"
	"github.com/Lllllllleong/deckscreen/internal/gcp"
	"github.com/Lllllllleong/deckscreen/internal/judge"
	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/slidestore"
)

// Rejection reasons reported when a deck is turned away before extraction.
const (
	RejectUnsupportedFormat = "unsupported_format"
	RejectFormatNotAllowed  = "format_not_allowed"
	RejectTooLarge          = "file_too_large"
)

// AnalyzerConfig holds all configuration for the deck analyzer.
type AnalyzerConfig struct {
	ProjectID         string
	VertexAIRegion    string
	Judge             judge.Config
	SlideImagesBucket string
	SlideImagesDir    string
	GoogleAPIKey      string
	SlideThumbnails   bool
	FigmaToken        string
	RenderDPI         float64
	Policy            config.Policy
}

// AnalyzerFunction runs the screening pipeline for one submission at a time.
// It holds no per-request state and is safe for concurrent use.
type AnalyzerFunction struct {
	registry     *deck.Registry
	orchestrator *Orchestrator
	store        slidestore.ImageStore
	policy       config.Policy
}

// loadAnalyzerConfig loads and validates the environment for the analyzer.
func loadAnalyzerConfig() (*AnalyzerConfig, error) {
	policy, err := config.LoadPolicy()
	if err != nil {
		return nil, err
	}

	cfg := &AnalyzerConfig{
		ProjectID:         gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion:    gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		SlideImagesBucket: gcp.GetEnv("SLIDE_IMAGES_BUCKET", ""),
		SlideImagesDir:    gcp.GetEnv("SLIDE_IMAGES_DIR", ""),
		GoogleAPIKey:      gcp.GetEnv("GOOGLE_API_KEY", ""),
		SlideThumbnails:   gcp.GetEnvBool("GOOGLE_SLIDES_THUMBNAILS", false),
		FigmaToken:        gcp.GetEnv("FIGMA_TOKEN", ""),
		RenderDPI:         gcp.GetEnvFloat("PDF_RENDER_DPI", deck.DefaultRenderDPI),
		Policy:            policy,
	}
	cfg.Judge = judge.Config{
		Provider:      gcp.GetEnv("JUDGE_PROVIDER", "vertex"),
		Model:         gcp.GetEnv("JUDGE_MODEL", ""),
		ProjectID:     cfg.ProjectID,
		Region:        cfg.VertexAIRegion,
		GeminiAPIKey:  gcp.GetEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:  gcp.GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: gcp.GetEnv("OPENAI_BASE_URL", ""),
	}

	if cfg.Judge.Provider == "vertex" && cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set for the vertex judge")
	}
	if cfg.SlideImagesBucket == "" && cfg.SlideImagesDir == "" {
		return nil, fmt.Errorf("SLIDE_IMAGES_BUCKET or SLIDE_IMAGES_DIR environment variable must be set")
	}
	return cfg, nil
}

// NewAnalyzer creates an AnalyzerFunction from the environment.
func NewAnalyzer(ctx context.Context) (*AnalyzerFunction, error) {
	cfg, err := loadAnalyzerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewAnalyzerFromConfig(ctx, *cfg)
}

// NewAnalyzerFromConfig wires the production collaborators for cfg.
func NewAnalyzerFromConfig(ctx context.Context, cfg AnalyzerConfig) (*AnalyzerFunction, error) {
	store, err := NewImageStore(ctx, cfg.SlideImagesBucket, cfg.SlideImagesDir)
	if err != nil {
		return nil, err
	}

	judgeService, err := judge.New(ctx, cfg.Judge)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge service: %w", err)
	}

	deps := deck.Deps{
		Renderer:        deck.FitzRenderer{},
		RenderDPI:       cfg.RenderDPI,
		SlideThumbnails: cfg.SlideThumbnails,
	}
	if slidesSvc, err := gcp.NewSlidesService(ctx, cfg.GoogleAPIKey); err != nil {
		slog.Warn("Google Slides client unavailable; Google Slides decks will fail extraction.", "error", err)
	} else {
		deps.Slides = deck.NewSlidesClient(slidesSvc, nil)
	}
	if cfg.FigmaToken != "" {
		deps.Figma = deck.NewFigmaClient(cfg.FigmaToken, "")
	}

	f := NewAnalyzerWith(deck.NewRegistry(deps), judgeService, store, cfg.Policy)
	slog.Info("Deck analyzer initialized.",
		"judgeProvider", cfg.Judge.Provider,
		"slideImagesBucket", cfg.SlideImagesBucket,
		"slideImagesDir", cfg.SlideImagesDir,
		"allowedFormats", cfg.Policy.AllowedFormats,
	)
	return f, nil
}

// NewImageStore picks the GCS store when a bucket is configured and the
// local filesystem store otherwise.
func NewImageStore(ctx context.Context, bucket, dir string) (slidestore.ImageStore, error) {
	if bucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		return slidestore.NewGCSStore(storageClient, bucket), nil
	}
	store, err := slidestore.NewLocalStore(dir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewAnalyzerWith assembles an analyzer from explicit collaborators.
func NewAnalyzerWith(registry *deck.Registry, j judge.Service, store slidestore.ImageStore, policy config.Policy) *AnalyzerFunction {
	return &AnalyzerFunction{
		registry:     registry,
		orchestrator: NewOrchestrator(j, store, policy),
		store:        store,
		policy:       policy,
	}
}

// Store exposes the image store so slide images can be served back.
func (f *AnalyzerFunction) Store() slidestore.ImageStore {
	return f.store
}

func (f *AnalyzerFunction) limits() checks.Limits {
	return checks.Limits{
		AllowedFormats: f.policy.AllowedFormats,
		MaxSizeMB:      f.policy.MaxSizeMB,
		MaxSlides:      f.policy.MaxSlides,
	}
}

// Process screens one submission. A deck rejected before extraction yields a
// response carrying a Rejection and a nil error. Extraction failures and
// internal invariant violations are returned as errors.
func (f *AnalyzerFunction) Process(ctx context.Context, sub models.Submission) (*models.AnalysisResponse, error) {
	logCtx := slog.With("processingId", sub.ProcessingID, "source", sub.Source)
	logCtx.Info("Processing new submission.")

	format := deck.Resolve(sub.Source)
	if declared := strings.ToLower(strings.TrimSpace(sub.DeclaredFormat)); declared != "" && declared != string(format) {
		logCtx.Warn("Declared deck format disagrees with the resolved format; using the resolved one.",
			"declaredFormat", declared, "resolvedFormat", format)
	}
	logCtx = logCtx.With("deckFormat", format)

	facts, err := f.observe(sub.Source, format)
	if err != nil {
		logCtx.Error("Failed to read submission.", "error", err)
		return nil, err
	}

	extractor, lookupErr := f.registry.Lookup(format, sub.Source)
	formatCheck, sizeCheck := checks.Gate(facts, f.limits())
	if lookupErr != nil || !formatCheck.Passed || !sizeCheck.Passed {
		return f.reject(ctx, logCtx, sub, format, facts, lookupErr), nil
	}

	logCtx.Info("Extracting deck.")
	extraction, err := extractor.Extract(ctx, sub.Source)
	if err != nil {
		logCtx.Error("Extraction failed.", "error", err)
		return nil, fmt.Errorf("extract %s: %w", format, err)
	}
	if err := extraction.Validate(); err != nil {
		logCtx.Error("Extractor broke the slide image invariant.", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternalInvariant, err)
	}
	facts.SlideCount = extraction.SlideCount
	logCtx.Info("Deck extracted.",
		"slideCount", extraction.SlideCount,
		"slideImages", len(extraction.SlideImages),
		"renderingAvailable", extraction.Rendering.Available,
	)

	var (
		deterministic models.DeterministicCheckResult
		outcome       *Outcome
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		deterministic = checks.Validate(facts, f.limits())
		return nil
	})
	eg.Go(func() error {
		var err error
		outcome, err = f.orchestrator.Run(gctx, sub.ProcessingID, extraction.SlideImages)
		return err
	})
	if err := eg.Wait(); err != nil {
		logCtx.Error("Slide analysis failed.", "error", err)
		return nil, err
	}

	probabilistic := checks.Aggregate(outcome.Judgments, checks.Thresholds{
		MaxBulletPoints:     f.policy.MaxBulletPoints,
		ComplianceThreshold: f.policy.ComplianceThreshold,
	})
	resp := Assemble(AssemblyInput{
		ProcessingID:  sub.ProcessingID,
		Format:        format,
		Deterministic: deterministic,
		Extraction:    extraction,
		Probabilistic: &probabilistic,
		Persisted:     outcome.Persisted,
	})
	logCtx.Info("Submission processed.",
		"submissionAllowed", resp.Status.SubmissionAllowed,
		"allTestsPassed", resp.Status.AllTestsPassed,
		"failedSlides", len(probabilistic.FailedSlides),
	)
	return resp, nil
}

// observe gathers the facts the gate needs without opening the deck.
func (f *AnalyzerFunction) observe(source string, format models.DeckFormat) (checks.DeckFacts, error) {
	if deck.IsURL(source) {
		return checks.DeckFacts{Extension: string(format), Remote: true, SlideCount: -1}, nil
	}
	info, err := os.Stat(source)
	if err != nil {
		return checks.DeckFacts{}, &deck.ExtractionError{Format: format, Reason: deck.ReasonInvalidSource, Err: err}
	}
	if info.IsDir() {
		return checks.DeckFacts{}, &deck.ExtractionError{Format: format, Reason: deck.ReasonInvalidSource, Err: errors.New("source is a directory")}
	}
	return checks.DeckFacts{
		Extension:  deck.Extension(source),
		SizeMB:     float64(info.Size()) / (1024 * 1024),
		SlideCount: -1,
	}, nil
}

// reject builds the response for a deck turned away before extraction. The
// slide count rule is still evaluated when the deck can be counted cheaply.
func (f *AnalyzerFunction) reject(ctx context.Context, logCtx *slog.Logger, sub models.Submission, format models.DeckFormat, facts checks.DeckFacts, lookupErr error) *models.AnalysisResponse {
	if lookupErr == nil && !facts.Remote {
		facts.SlideCount = f.registry.CountSlides(ctx, format, sub.Source)
	}
	deterministic := checks.Validate(facts, f.limits())

	rejection := &models.Rejection{}
	var ufe *deck.UnsupportedFormatError
	switch {
	case errors.As(lookupErr, &ufe):
		rejection.Reason = RejectUnsupportedFormat
		rejection.Message = "Unsupported deck format. Please submit a PDF or PPTX file, or a Google Slides or Figma link."
	case !deterministic.FormatCheck.Passed:
		rejection.Reason = RejectFormatNotAllowed
		rejection.Message = deterministic.FormatCheck.Message
	default:
		rejection.Reason = RejectTooLarge
		rejection.Message = deterministic.SizeCheck.Message
	}
	logCtx.Info("Submission rejected before extraction.", "reason", rejection.Reason, "slideCount", facts.SlideCount)

	return Assemble(AssemblyInput{
		ProcessingID:  sub.ProcessingID,
		Format:        format,
		Deterministic: deterministic,
		Rejection:     rejection,
	})
}

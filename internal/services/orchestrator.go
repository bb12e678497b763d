package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/deckscreen/internal/config"
	"github.com/Lllllllleong/deckscreen/internal/judge"
	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/slidestore"
)

// ErrInternalInvariant marks a broken internal contract. It is never caused
// by user input.
var ErrInternalInvariant = errors.New("internal invariant violated")

// Outcome is what the orchestrator produced for one deck.
type Outcome struct {
	// Judgments is indexed by slide position. A nil entry is a slide whose
	// analysis failed.
	Judgments []*models.SlideJudgment
	// Persisted lists, in ascending order, the slides whose image was stored.
	Persisted []int
}

// Orchestrator fans slide images out to the judge service with bounded
// concurrency and gathers the results in slide order.
type Orchestrator struct {
	judge  judge.Service
	store  slidestore.ImageStore
	policy config.Policy
}

func NewOrchestrator(j judge.Service, store slidestore.ImageStore, policy config.Policy) *Orchestrator {
	return &Orchestrator{judge: j, store: store, policy: policy}
}

// Run stores and judges every image. Per-slide failures are contained; only
// cancellation of ctx or an internal invariant violation fails the run.
func (o *Orchestrator) Run(ctx context.Context, processingID string, images [][]byte) (*Outcome, error) {
	logCtx := slog.With("processingId", processingID, "slides", len(images))
	judgments := make([]*models.SlideJudgment, len(images))
	persisted := make([]bool, len(images))
	if len(images) == 0 {
		return &Outcome{Judgments: judgments, Persisted: []int{}}, nil
	}

	logCtx.Info("Starting slide analysis.", "maxConcurrent", o.policy.MaxConcurrentJudgments)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.policy.MaxConcurrentJudgments)

	for i, image := range images {
		slideNumber := i + 1
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slideLog := logCtx.With("slide", slideNumber)

			if err := o.store.Put(gctx, processingID, slideNumber, image); err != nil {
				slideLog.Warn("Failed to persist slide image.", "error", err)
			} else {
				persisted[slideNumber-1] = true
			}

			j, err := o.judgeWithRetry(gctx, slideLog, image, slideNumber)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slideLog.Warn("Slide analysis failed.", "error", err)
				return nil
			}
			if j.SlideNumber != slideNumber {
				return fmt.Errorf("%w: judgment for slide %d reports slide %d", ErrInternalInvariant, slideNumber, j.SlideNumber)
			}
			judgments[slideNumber-1] = j
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logCtx.Error("Slide analysis aborted.", "error", err)
		return nil, err
	}

	out := &Outcome{Judgments: judgments, Persisted: []int{}}
	var failed int
	for i, ok := range persisted {
		if ok {
			out.Persisted = append(out.Persisted, i+1)
		}
		if judgments[i] == nil {
			failed++
		}
	}
	logCtx.Info("Slide analysis complete.", "failedSlides", failed)
	return out, nil
}

// judgeWithRetry calls the judge up to MaxRetries times in total. Only
// transient failures and per-attempt timeouts are retried.
func (o *Orchestrator) judgeWithRetry(ctx context.Context, logCtx *slog.Logger, image []byte, slideNumber int) (*models.SlideJudgment, error) {
	maxRetries := o.policy.MaxRetries
	backoff := o.policy.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.policy.JudgmentTimeout)
		j, err := o.judge.Analyze(callCtx, image, slideNumber)
		cancel()
		if err == nil {
			return j, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}

		logCtx.Warn(
			"Judgment failed, will retry.",
			"attempt", attempt,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("judgment for slide %d failed after %d attempts: %w", slideNumber, maxRetries, lastErr)
}

func retryable(err error) bool {
	return judge.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

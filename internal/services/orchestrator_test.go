package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/deckscreen/internal/judge"
	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/slidestore"
)

func TestRunOrdersResultsBySlideNumber(t *testing.T) {
	slide3Done := make(chan struct{})
	j := newScriptedJudge(func(ctx context.Context, slide, _ int) (*models.SlideJudgment, error) {
		switch slide {
		case 3:
			defer close(slide3Done)
		case 1:
			// Slide 1 only finishes after slide 3 has.
			select {
			case <-slide3Done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return &models.SlideJudgment{SlideNumber: slide, BulletPoints: slide}, nil
	})

	out, err := NewOrchestrator(j, slidestore.NewMemoryStore(), testPolicy()).Run(context.Background(), "pid", pngs(3))
	require.NoError(t, err)
	require.Len(t, out.Judgments, 3)
	for i, got := range out.Judgments {
		require.NotNil(t, got)
		assert.Equal(t, i+1, got.SlideNumber)
	}
	assert.Equal(t, []int{1, 2, 3}, out.Persisted)
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	j := newScriptedJudge(func(_ context.Context, slide, _ int) (*models.SlideJudgment, error) {
		time.Sleep(20 * time.Millisecond)
		return &models.SlideJudgment{SlideNumber: slide}, nil
	})
	policy := testPolicy()
	policy.MaxConcurrentJudgments = 3

	out, err := NewOrchestrator(j, slidestore.NewMemoryStore(), policy).Run(context.Background(), "pid", pngs(10))
	require.NoError(t, err)
	assert.Len(t, out.Judgments, 10)
	assert.LessOrEqual(t, int(j.peak.Load()), 3)
	assert.Equal(t, 10, j.TotalCalls())
}

func TestRunRetryExhaustionMarksSlideFailedOnce(t *testing.T) {
	j := newScriptedJudge(func(_ context.Context, slide, _ int) (*models.SlideJudgment, error) {
		if slide == 2 {
			return nil, &judge.TransientError{Err: errors.New("503 from upstream")}
		}
		return &models.SlideJudgment{SlideNumber: slide}, nil
	})
	store := slidestore.NewMemoryStore()
	policy := testPolicy()

	out, err := NewOrchestrator(j, store, policy).Run(context.Background(), "pid", pngs(3))
	require.NoError(t, err)
	assert.Nil(t, out.Judgments[1])
	assert.NotNil(t, out.Judgments[0])
	assert.NotNil(t, out.Judgments[2])
	assert.Equal(t, policy.MaxRetries, j.Calls(2))
	assert.Equal(t, 1, store.Puts(slidestore.Ref("pid", 2)))
	assert.Equal(t, []int{1, 2, 3}, out.Persisted)
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	j := newScriptedJudge(func(_ context.Context, slide, attempt int) (*models.SlideJudgment, error) {
		if attempt == 1 {
			return nil, &judge.TransientError{Err: errors.New("connection reset")}
		}
		return &models.SlideJudgment{SlideNumber: slide}, nil
	})
	out, err := NewOrchestrator(j, slidestore.NewMemoryStore(), testPolicy()).Run(context.Background(), "pid", pngs(1))
	require.NoError(t, err)
	assert.NotNil(t, out.Judgments[0])
	assert.Equal(t, 2, j.Calls(1))
}

func TestRunDoesNotRetryMalformedResponses(t *testing.T) {
	j := newScriptedJudge(func(_ context.Context, _, _ int) (*models.SlideJudgment, error) {
		return nil, &judge.MalformedResponseError{Reason: "missing fields: images"}
	})
	out, err := NewOrchestrator(j, slidestore.NewMemoryStore(), testPolicy()).Run(context.Background(), "pid", pngs(2))
	require.NoError(t, err)
	assert.Equal(t, []*models.SlideJudgment{nil, nil}, out.Judgments)
	assert.Equal(t, 1, j.Calls(1))
	assert.Equal(t, 1, j.Calls(2))
}

func TestRunTreatsAttemptTimeoutAsTransient(t *testing.T) {
	j := newScriptedJudge(func(ctx context.Context, _, _ int) (*models.SlideJudgment, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	policy := testPolicy()
	policy.JudgmentTimeout = 5 * time.Millisecond
	policy.MaxRetries = 2

	out, err := NewOrchestrator(j, slidestore.NewMemoryStore(), policy).Run(context.Background(), "pid", pngs(1))
	require.NoError(t, err)
	assert.Nil(t, out.Judgments[0])
	assert.Equal(t, 2, j.Calls(1))
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	j := newScriptedJudge(func(ctx context.Context, slide, _ int) (*models.SlideJudgment, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := NewOrchestrator(j, slidestore.NewMemoryStore(), testPolicy()).Run(ctx, "pid", pngs(4))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsMismatchedSlideNumber(t *testing.T) {
	j := newScriptedJudge(func(_ context.Context, _, _ int) (*models.SlideJudgment, error) {
		return &models.SlideJudgment{SlideNumber: 99}, nil
	})
	_, err := NewOrchestrator(j, slidestore.NewMemoryStore(), testPolicy()).Run(context.Background(), "pid", pngs(1))
	assert.ErrorIs(t, err, ErrInternalInvariant)
}

func TestRunWithoutImages(t *testing.T) {
	j := newScriptedJudge(fixedJudgments(scenarioA))
	out, err := NewOrchestrator(j, slidestore.NewMemoryStore(), testPolicy()).Run(context.Background(), "pid", nil)
	require.NoError(t, err)
	assert.Empty(t, out.Judgments)
	assert.Empty(t, out.Persisted)
	assert.Zero(t, j.TotalCalls())
}

package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lllllllleong/deckscreen/internal/config"
	"github.com/Lllllllleong/deckscreen/internal/models"
)

// scriptedJudge answers with a per-slide script and records call counts and
// the peak number of concurrent calls.
type scriptedJudge struct {
	respond func(ctx context.Context, slide, attempt int) (*models.SlideJudgment, error)

	mu       sync.Mutex
	calls    map[int]int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newScriptedJudge(respond func(ctx context.Context, slide, attempt int) (*models.SlideJudgment, error)) *scriptedJudge {
	return &scriptedJudge{respond: respond, calls: map[int]int{}}
}

func (j *scriptedJudge) Analyze(ctx context.Context, _ []byte, slide int) (*models.SlideJudgment, error) {
	n := j.inFlight.Add(1)
	defer j.inFlight.Add(-1)
	for {
		p := j.peak.Load()
		if n <= p || j.peak.CompareAndSwap(p, n) {
			break
		}
	}

	j.mu.Lock()
	j.calls[slide]++
	attempt := j.calls[slide]
	j.mu.Unlock()
	return j.respond(ctx, slide, attempt)
}

func (j *scriptedJudge) Calls(slide int) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls[slide]
}

func (j *scriptedJudge) TotalCalls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	total := 0
	for _, c := range j.calls {
		total += c
	}
	return total
}

// fixedJudgments returns the given judgments by slide number.
func fixedJudgments(js map[int]models.SlideJudgment) func(context.Context, int, int) (*models.SlideJudgment, error) {
	return func(_ context.Context, slide, _ int) (*models.SlideJudgment, error) {
		j := js[slide]
		j.SlideNumber = slide
		return &j, nil
	}
}

func testPolicy() config.Policy {
	p := config.DefaultPolicy()
	p.RetryBackoff = time.Millisecond
	p.JudgmentTimeout = time.Second
	return p
}

func pngs(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{0x89, 'P', 'N', 'G', byte(i + 1)}
	}
	return out
}

// scenarioA is the three-slide deck whose checks all pass.
var scenarioA = map[int]models.SlideJudgment{
	1: {IsTitleSlide: true, BulletPoints: 0, Images: 1, AdheresToBestPractices: true},
	2: {IsTitleSlide: false, BulletPoints: 4, Images: 0, AdheresToBestPractices: true},
	3: {IsTitleSlide: false, BulletPoints: 2, Images: 2, AdheresToBestPractices: true},
}

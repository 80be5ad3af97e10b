// Package analyzer defines the Analyzer Registry (spec.md §4.5, component
// C5): a bounded worker pool that runs every enabled analyzer
// concurrently over one shared Artifacts bundle, enforcing a per-analyzer
// wall-clock budget and degrading individual analyzers (skipped/failed)
// without aborting the whole pipeline run.
//
// Grounded in the teacher's live-caption transcriber pool
// (cmd/transcriber/call/live_captions.go: startTranscriberPool spawns N
// goroutines reading from a shared request channel) generalized from a
// fixed pool of identical transcriber workers to a dynamic fan-out over
// however many analyzers are enabled, each wrapped in its own
// context.WithTimeout the way the teacher wraps transcriber.Start in
// context.WithTimeout(ctx, startTimeout) in cmd/main.go.
package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/evalerr"
)

// RequiredFeature enumerates the inputs an analyzer may declare a
// dependency on (spec.md §4.5).
type RequiredFeature string

const (
	FeatureTranscript       RequiredFeature = "transcript"
	FeatureAudio            RequiredFeature = "audio"
	FeaturePitch            RequiredFeature = "pitch"
	FeatureIntensity        RequiredFeature = "intensity"
	FeatureMFCC             RequiredFeature = "mfcc"
	FeatureOnsets           RequiredFeature = "onsets"
	FeatureTopic            RequiredFeature = "topic"
	FeatureExpectedDuration RequiredFeature = "expected_duration"
)

// Status is the outcome of one analyzer's run.
type Status string

const (
	// StatusOK: the analyzer computed a score from fully available inputs.
	StatusOK Status = "ok"
	// StatusDegraded: the analyzer ran but fell back to a conservative
	// default for part of its computation (e.g. an empty transcript, or a
	// specific feature missing). It still contributes its score and
	// weight to the aggregate; only its confidence is lower.
	StatusDegraded Status = "degraded"
	// StatusSkipped: a required input was unavailable; the analyzer did
	// not run at all. Its weight is redistributed (spec.md §4.13).
	StatusSkipped Status = "skipped"
	// StatusFailed: the analyzer crashed or exceeded its wall-clock
	// budget. Its weight is redistributed (spec.md §4.13).
	StatusFailed Status = "failed"
)

// Result is the canonical per-analyzer output (spec.md §3, "AnalyzerResult").
type Result struct {
	ID      string         `json:"analyzer_id"`
	Status  Status         `json:"status"`
	Score   float64        `json:"score_0_100"` // meaningful when Status is StatusOK or StatusDegraded
	Details map[string]any `json:"metrics,omitempty"`
	Message string         `json:"error,omitempty"`

	// Feedback is a priority-ordered list of human-readable improvement
	// suggestions specific to this analyzer's finding; the aggregator
	// (C13) takes the top entry from the lowest-scoring analyzers when
	// composing its suggestion list (spec.md §4.13).
	Feedback   []string `json:"feedback,omitempty"`
	DurationMs int64    `json:"-"`
}

// Analyzer is implemented by each of C6-C12.
type Analyzer interface {
	ID() string
	RequiredFeatures() []RequiredFeature
	Analyze(ctx context.Context, a *artifacts.Artifacts) (Result, error)
}

// available reports whether every feature an analyzer requires is present
// in the given artifacts bundle.
func available(reqs []RequiredFeature, a *artifacts.Artifacts) (bool, string) {
	for _, req := range reqs {
		switch req {
		case FeatureTranscript:
			if a.AnnotatedTranscript == nil {
				return false, "annotated transcript unavailable"
			}
		case FeatureAudio:
			if a.AudioRef == nil {
				return false, "audio reference unavailable"
			}
		case FeaturePitch, FeatureIntensity, FeatureMFCC, FeatureOnsets:
			if a.FeaturesLoader == nil {
				return false, fmt.Sprintf("%s feature loader unavailable", req)
			}
		case FeatureTopic:
			if a.RequestMetadata.Topic == "" {
				return false, "topic not provided"
			}
		case FeatureExpectedDuration:
			if a.RequestMetadata.ExpectedDuration == "" {
				return false, "expected_duration not provided"
			}
		}
	}
	return true, ""
}

// Registry runs a fixed set of analyzers concurrently over one Artifacts
// bundle, bounding concurrency to workerCount and each analyzer's runtime
// to timeout.
type Registry struct {
	analyzers   []Analyzer
	workerCount int
	timeout     time.Duration
}

func NewRegistry(analyzers []Analyzer, workerCount int, timeout time.Duration) *Registry {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Registry{analyzers: analyzers, workerCount: workerCount, timeout: timeout}
}

// Run executes every registered analyzer against a, respecting ctx
// cancellation, and returns one Result per analyzer in registration
// order. No single analyzer's failure or timeout aborts the others.
func (r *Registry) Run(ctx context.Context, a *artifacts.Artifacts) []Result {
	results := make([]Result, len(r.analyzers))
	jobs := make(chan int, len(r.analyzers))
	for i := range r.analyzers {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < r.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.runOne(ctx, i, a)
			}
		}()
	}
	wg.Wait()

	return results
}

func (r *Registry) runOne(ctx context.Context, idx int, a *artifacts.Artifacts) Result {
	an := r.analyzers[idx]

	if ok, reason := available(an.RequiredFeatures(), a); !ok {
		return Result{ID: an.ID(), Status: StatusSkipped, Message: reason}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("analyzer panicked: %v", rec)}
			}
		}()
		res, err := an.Analyze(runCtx, a)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		elapsed := time.Since(start).Milliseconds()
		if o.err != nil {
			return Result{ID: an.ID(), Status: StatusFailed, Message: evalerr.NewAnalyzerError(an.ID(), o.err).Error(), DurationMs: elapsed}
		}
		o.res.DurationMs = elapsed
		return o.res
	case <-runCtx.Done():
		elapsed := time.Since(start).Milliseconds()
		return Result{ID: an.ID(), Status: StatusFailed, Message: fmt.Sprintf("analyzer %q timed out after %s", an.ID(), r.timeout), DurationMs: elapsed}
	}
}

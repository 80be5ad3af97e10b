package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/transcript"
)

type stubAnalyzer struct {
	id    string
	reqs  []RequiredFeature
	delay time.Duration
	panik bool
	score float64
}

func (s *stubAnalyzer) ID() string                          { return s.id }
func (s *stubAnalyzer) RequiredFeatures() []RequiredFeature { return s.reqs }
func (s *stubAnalyzer) Analyze(ctx context.Context, a *artifacts.Artifacts) (Result, error) {
	if s.panik {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return Result{ID: s.id, Status: StatusOK, Score: s.score}, nil
}

func TestRunSkipsAnalyzerMissingRequiredFeature(t *testing.T) {
	an := &stubAnalyzer{id: "needs-topic", reqs: []RequiredFeature{FeatureTopic}, score: 100}
	reg := NewRegistry([]Analyzer{an}, 2, time.Second)

	results := reg.Run(context.Background(), &artifacts.Artifacts{})
	require.Len(t, results, 1)
	require.Equal(t, StatusSkipped, results[0].Status)
}

func TestRunReturnsOKWhenFeaturesAvailable(t *testing.T) {
	an := &stubAnalyzer{id: "transcript-only", reqs: []RequiredFeature{FeatureTranscript}, score: 42}
	art := &artifacts.Artifacts{AnnotatedTranscript: &transcript.AnnotatedTranscript{WordCount: 1}}
	reg := NewRegistry([]Analyzer{an}, 2, time.Second)

	results := reg.Run(context.Background(), art)
	require.Len(t, results, 1)
	require.Equal(t, StatusOK, results[0].Status)
	require.Equal(t, 42.0, results[0].Score)
}

func TestRunMarksTimedOutAnalyzerAsFailed(t *testing.T) {
	an := &stubAnalyzer{id: "slow", delay: 50 * time.Millisecond}
	reg := NewRegistry([]Analyzer{an}, 1, 5*time.Millisecond)

	results := reg.Run(context.Background(), &artifacts.Artifacts{})
	require.Len(t, results, 1)
	require.Equal(t, StatusFailed, results[0].Status)
}

func TestRunRecoversPanickingAnalyzer(t *testing.T) {
	an := &stubAnalyzer{id: "panics", panik: true}
	reg := NewRegistry([]Analyzer{an}, 1, time.Second)

	results := reg.Run(context.Background(), &artifacts.Artifacts{})
	require.Len(t, results, 1)
	require.Equal(t, StatusFailed, results[0].Status)
}

func TestRunPreservesRegistrationOrder(t *testing.T) {
	a1 := &stubAnalyzer{id: "a", score: 1}
	a2 := &stubAnalyzer{id: "b", score: 2}
	a3 := &stubAnalyzer{id: "c", score: 3}
	reg := NewRegistry([]Analyzer{a1, a2, a3}, 4, time.Second)

	results := reg.Run(context.Background(), &artifacts.Artifacts{})
	require.Equal(t, []string{"a", "b", "c"}, []string{results[0].ID, results[1].ID, results[2].ID})
}

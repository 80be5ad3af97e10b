package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/config"
	"github.com/speechlab/evaluator/internal/transcript"
)

func weights() map[string]float64 {
	out := make(map[string]float64, len(config.DefaultWeights))
	for k, v := range config.DefaultWeights {
		out[k] = v
	}
	return out
}

func TestFinalScoreWithinBounds(t *testing.T) {
	results := []analyzer.Result{
		{ID: "effectiveness", Status: analyzer.StatusOK, Score: 72},
		{ID: "structure", Status: analyzer.StatusOK, Score: 61},
		{ID: "content", Status: analyzer.StatusOK, Score: 80},
		{ID: "pronunciation", Status: analyzer.StatusOK, Score: 55},
		{ID: "prosody", Status: analyzer.StatusOK, Score: 90},
		{ID: "disfluency", Status: analyzer.StatusOK, Score: 40},
		{ID: "timing", Status: analyzer.StatusOK, Score: 95},
	}
	report := Aggregate(results, weights(), nil)
	require.GreaterOrEqual(t, report.FinalScore, 0.0)
	require.LessOrEqual(t, report.FinalScore, 100.0)
}

func TestUniformScoreIsPreservedAfterRedistribution(t *testing.T) {
	results := []analyzer.Result{
		{ID: "effectiveness", Status: analyzer.StatusOK, Score: 77},
		{ID: "structure", Status: analyzer.StatusSkipped, Score: 0},
		{ID: "content", Status: analyzer.StatusOK, Score: 77},
		{ID: "pronunciation", Status: analyzer.StatusFailed, Score: 0},
		{ID: "prosody", Status: analyzer.StatusOK, Score: 77},
		{ID: "disfluency", Status: analyzer.StatusOK, Score: 77},
		{ID: "timing", Status: analyzer.StatusOK, Score: 77},
	}
	report := Aggregate(results, weights(), nil)
	require.InDelta(t, 77.0, report.FinalScore, 1e-6)
}

func TestWeightsRescaleToOneAfterRedistribution(t *testing.T) {
	results := []analyzer.Result{
		{ID: "effectiveness", Status: analyzer.StatusOK, Score: 50},
		{ID: "structure", Status: analyzer.StatusSkipped, Score: 0},
		{ID: "content", Status: analyzer.StatusOK, Score: 50},
		{ID: "pronunciation", Status: analyzer.StatusOK, Score: 50},
		{ID: "prosody", Status: analyzer.StatusOK, Score: 50},
		{ID: "disfluency", Status: analyzer.StatusOK, Score: 50},
		{ID: "timing", Status: analyzer.StatusOK, Score: 50},
	}
	eff := effectiveWeights(results, weights())
	require.InDelta(t, 1.0, WeightSum(eff), weightSumTolerance)
	require.NotContains(t, eff, "structure")
}

func TestRatingBands(t *testing.T) {
	require.Equal(t, RatingOutstanding, RatingFor(95))
	require.Equal(t, RatingExcellent, RatingFor(85))
	require.Equal(t, RatingVeryGood, RatingFor(75))
	require.Equal(t, RatingGood, RatingFor(65))
	require.Equal(t, RatingFair, RatingFor(55))
	require.Equal(t, RatingNeedsImprovement, RatingFor(45))
	require.Equal(t, RatingSignificantImprovement, RatingFor(30))
}

func TestSuggestionsCappedAndDeduplicated(t *testing.T) {
	results := []analyzer.Result{
		{ID: "effectiveness", Status: analyzer.StatusOK, Score: 20, Feedback: []string{"stay on topic", "be clearer"}},
		{ID: "structure", Status: analyzer.StatusOK, Score: 25, Feedback: []string{"stay on topic"}},
		{ID: "content", Status: analyzer.StatusOK, Score: 30, Feedback: []string{"use richer vocabulary"}},
		{ID: "pronunciation", Status: analyzer.StatusOK, Score: 90, Feedback: []string{"irrelevant, score is high"}},
		{ID: "prosody", Status: analyzer.StatusOK, Score: 95},
		{ID: "disfluency", Status: analyzer.StatusOK, Score: 99},
		{ID: "timing", Status: analyzer.StatusOK, Score: 99},
	}
	at := &transcript.AnnotatedTranscript{SpeakingRate: 5.0}
	report := Aggregate(results, weights(), at)

	require.LessOrEqual(t, len(report.Suggestions), maxSuggestions)
	require.Contains(t, report.Suggestions, "slow down; the pace is faster than comfortable for a listener to follow")

	seen := make(map[string]struct{})
	for _, s := range report.Suggestions {
		_, dup := seen[s]
		require.False(t, dup, "suggestion %q appeared twice", s)
		seen[s] = struct{}{}
	}
}

func TestDeterministicForIdenticalInputs(t *testing.T) {
	build := func() []analyzer.Result {
		return []analyzer.Result{
			{ID: "effectiveness", Status: analyzer.StatusOK, Score: 61, Feedback: []string{"a"}},
			{ID: "structure", Status: analyzer.StatusOK, Score: 58, Feedback: []string{"b"}},
			{ID: "content", Status: analyzer.StatusOK, Score: 70},
			{ID: "pronunciation", Status: analyzer.StatusOK, Score: 80},
			{ID: "prosody", Status: analyzer.StatusOK, Score: 90},
			{ID: "disfluency", Status: analyzer.StatusOK, Score: 55, Feedback: []string{"c"}},
			{ID: "timing", Status: analyzer.StatusOK, Score: 95},
		}
	}
	r1 := Aggregate(build(), weights(), nil)
	r2 := Aggregate(build(), weights(), nil)
	require.Equal(t, r1, r2)
}

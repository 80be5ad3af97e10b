// Package aggregate implements the Aggregator (spec.md §4.13, component
// C13): combines every analyzer's Result into one EvaluationReport, by
// weighted sum with skipped/failed-weight redistribution, a fixed
// rating-band lookup, and a capped, deduplicated suggestion list.
//
// Grounded in the Analyzer Registry contract of internal/analyzer, whose
// Run() already returns one Result per analyzer in registration order;
// this package is the single downstream consumer of that slice.
// Weighted-sum combination (skipped/failed components have their weight
// redistributed; degraded components keep their own score and weight), and
// suggestions prioritized from the weakest-scoring components, follow
// original_source/CLI/speech_analyzer/evaluator.py's calculate_final_score
// and generate_improvement_suggestions; the specific weight values and
// rating bands are spec.md §4.13's own, since the original's component set
// doesn't line up one-to-one with this pipeline's thirteen.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/transcript"
)

const (
	maxSuggestions       = 5
	lowScoreCutoff       = 60.0
	lowestCandidateCount = 3
	minSpeakingRateWPS   = 2.5
	maxSpeakingRateWPS   = 4.2
	weightSumTolerance   = 1e-6
)

// Rating is the final band a report's score falls into (spec.md §4.13).
type Rating string

const (
	RatingOutstanding            Rating = "Outstanding"
	RatingExcellent              Rating = "Excellent"
	RatingVeryGood               Rating = "Very Good"
	RatingGood                   Rating = "Good"
	RatingFair                   Rating = "Fair"
	RatingNeedsImprovement       Rating = "Needs Improvement"
	RatingSignificantImprovement Rating = "Significant Improvement Needed"
)

// RatingFor maps a final 0-100 score to its band (spec.md §4.13).
func RatingFor(score float64) Rating {
	switch {
	case score >= 90:
		return RatingOutstanding
	case score >= 80:
		return RatingExcellent
	case score >= 70:
		return RatingVeryGood
	case score >= 60:
		return RatingGood
	case score >= 50:
		return RatingFair
	case score >= 40:
		return RatingNeedsImprovement
	default:
		return RatingSignificantImprovement
	}
}

// SubScore is one analyzer's contribution to the final report.
type SubScore struct {
	AnalyzerID      string
	Status          analyzer.Status
	Score           float64
	EffectiveWeight float64
	Message         string
}

// Report is the pipeline's final response (spec.md §3, "EvaluationReport").
type Report struct {
	FinalScore  float64
	Rating      Rating
	SubScores   []SubScore
	Suggestions []string
}

// effectiveWeights removes the weight of every skipped or failed analyzer
// from weights and rescales the remainder to sum to 1.0 (spec.md §4.13).
// Degraded analyzers still produced a real score, so they keep their
// configured weight unchanged.
func effectiveWeights(results []analyzer.Result, weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	var total float64
	for _, r := range results {
		if r.Status == analyzer.StatusSkipped || r.Status == analyzer.StatusFailed {
			continue
		}
		w, ok := weights[r.ID]
		if !ok {
			continue
		}
		out[r.ID] = w
		total += w
	}
	if total <= 0 {
		return out
	}
	for id, w := range out {
		out[id] = w / total
	}
	return out
}

// suggestionsFor builds the capped, deduplicated suggestion list (spec.md
// §4.13): the lowest lowestCandidateCount sub-scores under lowScoreCutoff
// each contribute their top feedback line, a pace hint is appended when
// speaking rate falls outside [minSpeakingRateWPS, maxSpeakingRateWPS], and
// the whole list is deduplicated in place while preserving order, then
// capped at maxSuggestions.
func suggestionsFor(results []analyzer.Result, t *transcript.AnnotatedTranscript) []string {
	ranked := make([]analyzer.Result, 0, len(results))
	for _, r := range results {
		if r.Status == analyzer.StatusSkipped || r.Status == analyzer.StatusFailed {
			continue
		}
		ranked = append(ranked, r)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score < ranked[j].Score })

	var raw []string
	for i := 0; i < len(ranked) && i < lowestCandidateCount; i++ {
		r := ranked[i]
		if r.Score >= lowScoreCutoff {
			continue
		}
		if len(r.Feedback) > 0 {
			raw = append(raw, r.Feedback[0])
		}
	}

	if t != nil && t.SpeakingRate > 0 {
		switch {
		case t.SpeakingRate < minSpeakingRateWPS:
			raw = append(raw, "speak a bit faster; the pace is slower than a typical natural rate")
		case t.SpeakingRate > maxSpeakingRateWPS:
			raw = append(raw, "slow down; the pace is faster than comfortable for a listener to follow")
		}
	}

	seen := make(map[string]struct{}, len(raw))
	var deduped []string
	for _, s := range raw {
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, s)
	}

	if len(deduped) > maxSuggestions {
		deduped = deduped[:maxSuggestions]
	}
	return deduped
}

// Aggregate combines analyzer results into the final Report (spec.md
// §4.13). weights is typically config.Config.Weights (or
// config.DefaultWeights); t supplies the speaking rate used for pace
// suggestions and may be nil.
func Aggregate(results []analyzer.Result, weights map[string]float64, t *transcript.AnnotatedTranscript) Report {
	eff := effectiveWeights(results, weights)

	var final float64
	subScores := make([]SubScore, 0, len(results))
	for _, r := range results {
		w := eff[r.ID]
		if r.Status != analyzer.StatusSkipped && r.Status != analyzer.StatusFailed {
			final += r.Score * w
		}
		subScores = append(subScores, SubScore{
			AnalyzerID:      r.ID,
			Status:          r.Status,
			Score:           r.Score,
			EffectiveWeight: w,
			Message:         r.Message,
		})
	}
	final = math.Max(0, math.Min(100, final))

	return Report{
		FinalScore:  final,
		Rating:      RatingFor(final),
		SubScores:   subScores,
		Suggestions: suggestionsFor(results, t),
	}
}

// WeightSum returns the sum of a weights map, for callers verifying the
// rescale-to-1.0 invariant (spec.md §8) within weightSumTolerance.
func WeightSum(weights map[string]float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum
}

// Package structure implements the Structure Analyzer (spec.md §4.6,
// component C6): detects an intro/body/conclusion shape in a transcript by
// scanning sentence-tokenized text for two disjoint marker-phrase families,
// then scores the resulting section proportions and body transition-word
// density.
//
// Grounded in the Analyzer Registry contract of internal/analyzer; the
// marker-phrase/transition-word detection approach follows
// original_source/CLI/speech_analyzer/structure_analyzer.py's
// analyze_speech_structure and analyze_speech_effectiveness (keyword-list
// intro/conclusion detection, transition-word counting), reworked from
// their fixed point-award scoring into spec.md §4.6's proportion-band and
// bonus-sum model.
package structure

import (
	"context"
	"strings"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
)

const (
	defaultIntroFraction      = 0.20
	maxIntroEndFraction       = 0.30
	defaultConclusionFraction = 0.20
	minConclusionStartFrac    = 0.70

	introBandLow, introBandHigh           = 10.0, 20.0
	bodyBandLow, bodyBandHigh             = 60.0, 80.0
	conclusionBandLow, conclusionBandHigh = 10.0, 20.0
	bandEnvelope                          = 5.0

	baseScore     = 70.0
	degradedScore = 50.0
)

var introMarkers = []string{
	"today i will", "today we will", "in this talk", "in this presentation",
	"i'm going to talk about", "i am going to talk about", "let me start by",
	"to begin", "i want to begin", "good morning", "good afternoon",
	"good evening", "thank you for having me", "welcome everyone", "welcome",
}

var conclusionMarkers = []string{
	"in conclusion", "to conclude", "to summarize", "in summary",
	"to sum up", "finally", "in closing", "that concludes", "wrapping up",
	"let me wrap up", "thank you for listening", "thank you for your time",
	"that's all", "that is all",
}

var transitionWords = []string{
	"however", "therefore", "moreover", "furthermore", "in addition",
	"consequently", "meanwhile", "nevertheless", "thus", "additionally",
	"on the other hand", "as a result", "for example", "for instance",
	"in contrast", "similarly", "subsequently", "next",
}

// Analyzer implements analyzer.Analyzer for C6.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) ID() string { return "structure" }

func (a *Analyzer) RequiredFeatures() []analyzer.RequiredFeature {
	return []analyzer.RequiredFeature{analyzer.FeatureTranscript}
}

func containsAny(sentence string, phrases []string) bool {
	lower := strings.ToLower(sentence)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// boundaries computes the intro_end and conclusion_start sentence indices
// (spec.md §4.6).
func boundaries(sentences []string) (introEnd, conclusionStart int, introFound, conclusionFound bool) {
	total := len(sentences)
	defaultIntroEnd := int(defaultIntroFraction * float64(total))
	defaultConclusionStart := total - int(defaultConclusionFraction*float64(total))

	lastIntroIdx := -1
	firstConclusionIdx := -1
	for i, s := range sentences {
		if containsAny(s, introMarkers) {
			lastIntroIdx = i
			introFound = true
		}
		if firstConclusionIdx == -1 && containsAny(s, conclusionMarkers) {
			firstConclusionIdx = i
			conclusionFound = true
		}
	}

	introEnd = defaultIntroEnd
	if introFound {
		candidate := lastIntroIdx + 3
		ceiling := int(maxIntroEndFraction * float64(total))
		if candidate < ceiling {
			introEnd = candidate
		} else {
			introEnd = ceiling
		}
	}

	conclusionStart = defaultConclusionStart
	if conclusionFound {
		candidate := firstConclusionIdx - 1
		floor := int(minConclusionStartFrac * float64(total))
		if candidate > floor {
			conclusionStart = candidate
		} else {
			conclusionStart = floor
		}
	}

	if introEnd >= conclusionStart {
		introEnd = defaultIntroEnd
		conclusionStart = defaultConclusionStart
	}
	if introEnd < 0 {
		introEnd = 0
	}
	if conclusionStart > total {
		conclusionStart = total
	}
	if conclusionStart < introEnd {
		conclusionStart = introEnd
	}

	return introEnd, conclusionStart, introFound, conclusionFound
}

func bandPenalty(pct, lo, hi float64) bool {
	return pct < lo-bandEnvelope || pct > hi+bandEnvelope
}

func transitionDensity(bodySentences []string) float64 {
	if len(bodySentences) == 0 {
		return 0
	}
	count := 0
	for _, s := range bodySentences {
		if containsAny(s, transitionWords) {
			count++
		}
	}
	return float64(count) / float64(len(bodySentences))
}

func (a *Analyzer) Analyze(_ context.Context, art *artifacts.Artifacts) (analyzer.Result, error) {
	t := art.AnnotatedTranscript
	if t == nil || t.WordCount == 0 {
		return analyzer.Result{
			ID:      a.ID(),
			Status:  analyzer.StatusDegraded,
			Score:   degradedScore,
			Message: "empty transcript: no sentences to score",
		}, nil
	}

	sentences := t.Sentences
	total := len(sentences)
	if total == 0 {
		return analyzer.Result{
			ID:      a.ID(),
			Status:  analyzer.StatusDegraded,
			Score:   degradedScore,
			Message: "no sentence boundaries detected",
		}, nil
	}

	introEnd, conclusionStart, introFound, conclusionFound := boundaries(sentences)

	introPct := 100 * float64(introEnd) / float64(total)
	bodyPct := 100 * float64(conclusionStart-introEnd) / float64(total)
	conclusionPct := 100 * float64(total-conclusionStart) / float64(total)

	violations := 0
	if bandPenalty(introPct, introBandLow, introBandHigh) {
		violations++
	}
	if bandPenalty(bodyPct, bodyBandLow, bodyBandHigh) {
		violations++
	}
	if bandPenalty(conclusionPct, conclusionBandLow, conclusionBandHigh) {
		violations++
	}
	proportionBonus := 10.0 - float64(violations)*(10.0/3.0)
	if proportionBonus < 0 {
		proportionBonus = 0
	}

	var completenessBonus float64
	switch {
	case introFound && conclusionFound:
		completenessBonus = 20
	case introFound || conclusionFound:
		completenessBonus = 10
	case total >= 3:
		completenessBonus = 5
	default:
		completenessBonus = 0
	}

	bodySentences := sentences[introEnd:conclusionStart]
	density := transitionDensity(bodySentences)
	coherenceBonus := density * 40
	if coherenceBonus > 20 {
		coherenceBonus = 20
	}

	score := baseScore + completenessBonus + proportionBonus + coherenceBonus
	if score > 100 {
		score = 100
	}

	var feedback []string
	if !introFound {
		feedback = append(feedback, "open with a clear statement of what the talk will cover")
	}
	if !conclusionFound {
		feedback = append(feedback, "close with an explicit summary or call to action")
	}
	if density < 0.1 {
		feedback = append(feedback, "use more transition words (however, therefore, for example) to connect ideas")
	}
	if violations > 0 {
		feedback = append(feedback, "rebalance the talk so the body occupies roughly 60-80% of speaking time")
	}

	return analyzer.Result{
		ID:       a.ID(),
		Status:   analyzer.StatusOK,
		Score:    score,
		Feedback: feedback,
		Details: map[string]any{
			"total_sentences":    total,
			"intro_end":          introEnd,
			"conclusion_start":   conclusionStart,
			"intro_pct":          introPct,
			"body_pct":           bodyPct,
			"conclusion_pct":     conclusionPct,
			"intro_marker_found": introFound,
			"conclusion_found":   conclusionFound,
			"transition_density": density,
			"completeness_bonus": completenessBonus,
			"proportion_bonus":   proportionBonus,
			"coherence_bonus":    coherenceBonus,
		},
	}, nil
}

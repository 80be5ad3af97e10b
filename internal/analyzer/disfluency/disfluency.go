// Package disfluency implements the Disfluency Analyzer (spec.md §4.8,
// component C8): filler-word density with a hard floor at high density,
// per-minute filler-spike penalties, and an intra-segment pause severity
// score, blended 0.6/0.4 into a combined 0-100 score.
//
// Pause binning consumes internal/transcript's intra-segment pause tokens
// directly (C3's output), grounded the same way the Prosody and Timing
// analyzers consume C3/C4 outputs rather than re-deriving them.
package disfluency

import (
	"context"
	"strings"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/transcript"
)

// DefaultFillers is the default filler lexicon (spec.md §4.8), restored
// from original_source/Server/models/filler_word_detection.py's
// FILLER_WORDS set.
var DefaultFillers = []string{
	"um", "uh", "ah", "er", "like", "you know", "sort of", "kind of", "basically",
	"literally", "actually", "hmm", "huh", "yeah", "right", "okay", "well",
	"kinda", "gonna", "wanna", "i guess", "so yeah",
}

const (
	highDensityThreshold    = 0.15
	midHighDensityThreshold = 0.10
	midLowDensityThreshold  = 0.05

	bin1Limit = 3 // <1.5s
	bin2Limit = 2 // 1.5-3s
	bin3Limit = 1 // 3-5s

	degradedScore = 50.0
)

// Analyzer implements analyzer.Analyzer for C8.
type Analyzer struct {
	fillers map[string]struct{}
}

// New builds a Disfluency Analyzer. A nil or empty fillers list falls
// back to DefaultFillers.
func New(fillers []string) *Analyzer {
	if len(fillers) == 0 {
		fillers = DefaultFillers
	}
	set := make(map[string]struct{}, len(fillers))
	for _, f := range fillers {
		set[strings.ToLower(f)] = struct{}{}
	}
	return &Analyzer{fillers: set}
}

func (a *Analyzer) ID() string { return "disfluency" }

func (a *Analyzer) RequiredFeatures() []analyzer.RequiredFeature {
	return []analyzer.RequiredFeature{analyzer.FeatureTranscript}
}

// countFillers walks the word tokens, matching both single-word fillers
// ("um") and multi-word fillers ("you know") against a sliding window of
// up to two words, and buckets matches into one-minute windows by the
// matched word's start time.
func (a *Analyzer) countFillers(words []transcript.Token) (count int, perMinute map[int]int) {
	perMinute = make(map[int]int)
	for i := 0; i < len(words); i++ {
		w := strings.ToLower(words[i].Text)
		matched := false
		if i+1 < len(words) {
			twoWord := w + " " + strings.ToLower(words[i+1].Text)
			if _, ok := a.fillers[twoWord]; ok {
				matched = true
				i++
			}
		}
		if !matched {
			if _, ok := a.fillers[strings.Trim(w, ".,!?;:")]; ok {
				matched = true
			}
		}
		if matched {
			count++
			minute := int(words[i].StartS / 60)
			perMinute[minute]++
		}
	}
	return count, perMinute
}

func fillerSubScore(density float64, perMinute map[int]int) (score float64, hardFloor bool) {
	if density >= highDensityThreshold {
		return 0, true
	}

	switch {
	case density >= midHighDensityThreshold:
		score = 2
	case density >= midLowDensityThreshold:
		score = 4
	default:
		score = 10 - density*100
	}
	if score < 0 {
		score = 0
	}

	for _, c := range perMinute {
		switch {
		case c > 6:
			score -= 4
		case c > 4:
			score -= 3
		case c > 2:
			score -= 2
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, false
}

func pauseSubScore(t *transcript.AnnotatedTranscript) float64 {
	var bin1, bin2, bin3, bin4 int
	for _, tok := range t.Tokens {
		if tok.Kind != transcript.TokenPause || tok.Source != transcript.PauseIntraSegment {
			continue
		}
		switch {
		case tok.DurationS > 5:
			bin4++
		case tok.DurationS >= 3:
			bin3++
		case tok.DurationS >= 1.5:
			bin2++
		default:
			bin1++
		}
	}

	if bin4 > 0 {
		return 0
	}

	score := 10.0
	if bin1 > bin1Limit {
		score -= float64(bin1-bin1Limit) * 0.5
	}
	if bin2 > bin2Limit {
		score -= float64(bin2-bin2Limit) * 1.0
	}
	if bin3 > bin3Limit {
		score -= float64(bin3-bin3Limit) * 2.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (a *Analyzer) Analyze(_ context.Context, art *artifacts.Artifacts) (analyzer.Result, error) {
	t := art.AnnotatedTranscript
	if t == nil || t.WordCount == 0 {
		return analyzer.Result{
			ID:      a.ID(),
			Status:  analyzer.StatusDegraded,
			Score:   degradedScore,
			Message: "empty transcript: no words to score",
		}, nil
	}

	var words []transcript.Token
	for _, tok := range t.Tokens {
		if tok.Kind == transcript.TokenWord {
			words = append(words, tok)
		}
	}

	fillerCount, perMinute := a.countFillers(words)
	density := float64(fillerCount) / float64(len(words))

	fillerScore, hardFloor := fillerSubScore(density, perMinute)
	pauseScore := pauseSubScore(t)

	var combined float64
	if hardFloor {
		combined = 0
	} else {
		combined = (fillerScore*0.6 + pauseScore*0.4) * 10
	}
	if combined > 100 {
		combined = 100
	}
	if combined < 0 {
		combined = 0
	}

	var feedback []string
	if hardFloor {
		feedback = append(feedback, "cut down heavily on filler words (um, uh, like) throughout the talk")
	} else if fillerScore < 7 {
		feedback = append(feedback, "reduce filler words such as um, uh, and like")
	}
	if pauseScore < 7 {
		feedback = append(feedback, "shorten long pauses within sentences; rehearse transitions")
	}

	return analyzer.Result{
		ID:       a.ID(),
		Status:   analyzer.StatusOK,
		Score:    combined,
		Feedback: feedback,
		Details: map[string]any{
			"filler_count":   fillerCount,
			"filler_density": density,
			"filler_score":   fillerScore,
			"pause_score":    pauseScore,
			"hard_floor":     hardFloor,
		},
	}, nil
}

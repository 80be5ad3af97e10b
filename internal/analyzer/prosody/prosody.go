// Package prosody implements the Prosody Analyzer (spec.md §4.10,
// component C10): gender-banded pitch-time scoring plus emphasis-region
// detection blended from volume, pitch delta, spectral contrast and pause
// proximity, grounded in original_source/Server/models/voice_modulation.py
// (pitch/intensity statistics feeding a pitch-and-volume score) and
// original_source/CLI/speech_analyzer/emphasis_analyzer.py's
// detect_emphasized_segments (a weighted RMS/pitch-delta/onset blend
// thresholded into emphasis regions) — reworked here into a deterministic
// per-frame blend since neither a BERT model nor parselmouth/librosa is
// available anywhere in the pack.
//
// Gender auto-detection resolves spec.md §9's Open Question: the
// distillation's hard-coded "male-leaning tie-break" becomes an explicit
// GenderTieBreakThreshold in [0, 1] (internal/config), documented below as
// shifting the decision boundary inside the male/female pitch-band overlap
// zone; the default (0.5) is neutral.
package prosody

import (
	"context"
	"math"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/transcript"
)

const (
	maleLow, maleHigh       = 85.0, 180.0
	femaleLow, femaleHigh   = 165.0, 255.0
	overlapLow, overlapHigh = femaleLow, maleHigh

	emphasisThreshold   = 0.6
	emphasisMergeGapFr  = 3
	targetDensityPerMin = 4.0 // center of the 2-6/min target band
	densityBandHalf     = 2.0

	pitchWeight    = 0.6
	emphasisWeight = 0.4

	degradedScore = 50.0
)

// Analyzer implements analyzer.Analyzer for C10.
type Analyzer struct {
	GenderTieBreakThreshold float64
}

func New(tieBreak float64) *Analyzer {
	if tieBreak <= 0 {
		tieBreak = 0.5
	}
	return &Analyzer{GenderTieBreakThreshold: tieBreak}
}

func (a *Analyzer) ID() string { return "prosody" }

func (a *Analyzer) RequiredFeatures() []analyzer.RequiredFeature {
	return []analyzer.RequiredFeature{analyzer.FeaturePitch, analyzer.FeatureIntensity, analyzer.FeatureTranscript}
}

func pitchBandFor(gender string) (lo, hi float64) {
	switch gender {
	case "female":
		return femaleLow, femaleHigh
	default:
		return maleLow, maleHigh
	}
}

// resolveGender estimates male/female from voiced pitch statistics when
// the request's gender hint is "auto" or empty; the tie-break threshold
// only matters inside the [femaleLow, maleHigh] overlap zone.
func resolveGender(hint string, pitch []float64, tieBreak float64) string {
	if hint == "male" || hint == "female" {
		return hint
	}

	voiced := make([]float64, 0, len(pitch))
	for _, p := range pitch {
		if p > 0 {
			voiced = append(voiced, p)
		}
	}
	if len(voiced) == 0 {
		return "male"
	}
	med := median(voiced)

	switch {
	case med < overlapLow:
		return "male"
	case med > overlapHigh:
		return "female"
	default:
		boundary := overlapLow + tieBreak*(overlapHigh-overlapLow)
		if med <= boundary {
			return "male"
		}
		return "female"
	}
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func medianFilter(x []float64, window int) []float64 {
	if window < 1 || window%2 == 0 {
		window++
	}
	half := window / 2
	out := make([]float64, len(x))
	buf := make([]float64, 0, window)
	for i := range x {
		buf = buf[:0]
		for j := i - half; j <= i+half; j++ {
			if j >= 0 && j < len(x) {
				buf = append(buf, x[j])
			}
		}
		out[i] = median(buf)
	}
	return out
}

func normalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	lo, hi := xs[0], xs[0]
	for _, v := range xs {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	for i, v := range xs {
		if span <= 0 {
			out[i] = 0
		} else {
			out[i] = (v - lo) / span
		}
	}
	return out
}

type emphasisRegion struct {
	startFrame, endFrame int
}

func mergeRegions(flags []bool) []emphasisRegion {
	var regions []emphasisRegion
	i := 0
	for i < len(flags) {
		if !flags[i] {
			i++
			continue
		}
		start := i
		end := i
		for end+1 < len(flags) {
			// look ahead up to the merge gap for another true flag
			gapEnd := end + 1 + emphasisMergeGapFr
			if gapEnd > len(flags) {
				gapEnd = len(flags)
			}
			found := -1
			for k := end + 1; k < gapEnd; k++ {
				if flags[k] {
					found = k
					break
				}
			}
			if found == -1 {
				break
			}
			end = found
		}
		regions = append(regions, emphasisRegion{startFrame: start, endFrame: end})
		i = end + 1
	}
	return regions
}

// keyPhraseWords is a lightweight stand-in for an NLP key-phrase
// extractor (spec.md §4.10 references one without specifying a concrete
// implementation): content words of at least 6 characters that are not
// stopwords.
func keyPhraseWords(t *transcript.AnnotatedTranscript, stopwords map[string]struct{}) []transcript.Token {
	var out []transcript.Token
	for _, tok := range t.Tokens {
		if tok.Kind != transcript.TokenWord || len(tok.Text) < 6 {
			continue
		}
		if stopwords != nil {
			if _, ok := stopwords[tok.Text]; ok {
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

func (a *Analyzer) Analyze(_ context.Context, art *artifacts.Artifacts) (analyzer.Result, error) {
	t := art.AnnotatedTranscript
	if t == nil || t.WordCount == 0 {
		return analyzer.Result{ID: a.ID(), Status: analyzer.StatusDegraded, Score: degradedScore, Message: "empty transcript"}, nil
	}

	pitch, err := art.FeaturesLoader.Pitch()
	if err != nil {
		return analyzer.Result{ID: a.ID(), Status: analyzer.StatusDegraded, Score: degradedScore, Message: err.Error()}, nil
	}
	intensity, err := art.FeaturesLoader.Intensity()
	if err != nil {
		return analyzer.Result{ID: a.ID(), Status: analyzer.StatusDegraded, Score: degradedScore, Message: err.Error()}, nil
	}

	filtered := medianFilter(pitch, 5)
	gender := resolveGender(art.RequestMetadata.GenderHint, filtered, a.GenderTieBreakThreshold)
	lo, hi := pitchBandFor(gender)

	var optimalN, tooLowN, tooHighN int
	pitchDelta := make([]float64, len(filtered))
	for i, p := range filtered {
		if p <= 0 {
			continue
		}
		switch {
		case p < lo:
			tooLowN++
		case p > hi:
			tooHighN++
		default:
			optimalN++
		}
		if i > 0 && filtered[i-1] > 0 {
			pitchDelta[i] = math.Abs(p - filtered[i-1])
		}
	}
	voicedTotal := optimalN + tooLowN + tooHighN
	pitchScore := 0.0
	if voicedTotal > 0 {
		pitchScore = math.Round(100 * float64(optimalN) / float64(voicedTotal))
	}

	_, bandwidth, specErr := art.FeaturesLoader.Spectral()
	if specErr != nil {
		bandwidth = make([]float64, len(filtered))
	}

	n := len(filtered)
	volNorm := normalize(resizeTo(intensity, n))
	deltaNorm := normalize(pitchDelta)
	specNorm := normalize(resizeTo(bandwidth, n))
	pauseProxNorm := pauseProximity(t, art.FeaturesLoader, n)

	flags := make([]bool, n)
	for i := 0; i < n; i++ {
		combined := volNorm[i]*0.4 + deltaNorm[i]*0.3 + specNorm[i]*0.2 + pauseProxNorm[i]*0.1
		flags[i] = combined >= emphasisThreshold
	}
	regions := mergeRegions(flags)

	var stopwords map[string]struct{}
	if art.ReferenceData != nil {
		stopwords = art.ReferenceData.Stopwords
	}
	keyPhrases := keyPhraseWords(t, stopwords)

	overlapCount := 0
	for _, kp := range keyPhrases {
		frame := timeToFrame(kp.StartS, art.FeaturesLoader)
		for _, r := range regions {
			if frame >= r.startFrame && frame <= r.endFrame {
				overlapCount++
				break
			}
		}
	}
	coverage := 0.0
	if len(keyPhrases) > 0 {
		coverage = float64(overlapCount) / float64(len(keyPhrases))
	}

	durationMin := float64(n) * (float64(art.FeaturesLoader.HopLength()) / float64(art.FeaturesLoader.SampleRate())) / 60
	density := 0.0
	if durationMin > 0 {
		density = float64(len(regions)) / durationMin
	}
	densityScore := 1 - math.Abs(density-targetDensityPerMin)/(targetDensityPerMin+densityBandHalf)
	densityScore = clamp01(densityScore)

	countScore := 1.0
	if len(keyPhrases) > 0 {
		countScore = clamp01(float64(len(regions)) / float64(len(keyPhrases)))
	}

	emphasisScore := 100 * (coverage*0.5 + densityScore*0.3 + countScore*0.2)

	final := pitchScore*pitchWeight + emphasisScore*emphasisWeight

	var feedback []string
	if pitchScore < 60 {
		feedback = append(feedback, "vary pitch more within your natural range to sound less flat")
	}
	if density < targetDensityPerMin-densityBandHalf {
		feedback = append(feedback, "stress key words more deliberately to highlight important points")
	} else if density > targetDensityPerMin+densityBandHalf {
		feedback = append(feedback, "ease off constant emphasis so key points stand out more")
	}

	return analyzer.Result{
		ID:       a.ID(),
		Status:   analyzer.StatusOK,
		Score:    final,
		Feedback: feedback,
		Details: map[string]any{
			"gender":                   gender,
			"pitch_band_low":           lo,
			"pitch_band_high":          hi,
			"pitch_score":              pitchScore,
			"emphasis_score":           emphasisScore,
			"emphasis_count":           len(regions),
			"emphasis_density_per_min": density,
		},
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func resizeTo(xs []float64, n int) []float64 {
	if len(xs) == n {
		return xs
	}
	out := make([]float64, n)
	copy(out, xs)
	return out
}

func timeToFrame(t float64, e interface {
	HopLength() int
	SampleRate() int
}) int {
	hopS := float64(e.HopLength()) / float64(e.SampleRate())
	if hopS <= 0 {
		return 0
	}
	return int(t / hopS)
}

// pauseProximity scores each frame by how close it is to a transcript
// pause boundary, decaying linearly over 10 frames.
func pauseProximity(t *transcript.AnnotatedTranscript, e interface {
	HopLength() int
	SampleRate() int
}, n int) []float64 {
	out := make([]float64, n)
	var pauseFrames []int
	cursor := 0.0
	for _, tok := range t.Tokens {
		switch tok.Kind {
		case transcript.TokenWord:
			cursor = tok.EndS
		case transcript.TokenPause:
			pauseFrames = append(pauseFrames, timeToFrame(cursor, e))
		}
	}
	const decay = 10
	for i := 0; i < n; i++ {
		best := math.MaxInt32
		for _, pf := range pauseFrames {
			d := i - pf
			if d < 0 {
				d = -d
			}
			if d < best {
				best = d
			}
		}
		if best < decay {
			out[i] = 1 - float64(best)/decay
		}
	}
	return out
}

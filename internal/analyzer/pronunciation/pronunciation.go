// Package pronunciation implements the Pronunciation Analyzer (spec.md
// §4.11, component C11): four sub-scores (phoneme accuracy, prosody,
// fluency, articulation), each constrained to [60, 95], combined by the
// request's domain profile's PronunciationWeights (internal/domain,
// restoring vocabulary_evaluation.py's DOMAIN_CONFIGS[*]["pronunciation_
// config"]["scoring_weights"]) — general speech weights phoneme accuracy
// highest, presentation domains weight prosody highest, and so on.
//
// Resolves spec.md §9's Open Question on determinism: the distillation's
// analyzer used np.random.random() as a stand-in for per-phoneme clarity
// in some branches. This implementation never generates a random score;
// phoneme clarity is estimated only when both the pronunciation dictionary
// and the acoustic features are available; when either is missing and ASR
// confidence (the documented fallback) is also absent, the analyzer returns
// StatusDegraded with a conservative default rather than fabricating a
// value.
package pronunciation

import (
	"context"
	"math"
	"strings"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/features"
	"github.com/speechlab/evaluator/internal/refdata"
	"github.com/speechlab/evaluator/internal/transcript"
)

const (
	subScoreMin = 60.0
	subScoreMax = 95.0

	accentBoostThreshold = 75.0
	maxAccentBoost       = 10.0

	typicalVoiceCentroidHz = 1500.0
	hesitationPauseS       = 0.75

	degradedScore = 65.0 // near the low end of the [60, 95] sub-score range
)

// Analyzer implements analyzer.Analyzer for C11.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) ID() string { return "pronunciation" }

func (a *Analyzer) RequiredFeatures() []analyzer.RequiredFeature {
	return []analyzer.RequiredFeature{analyzer.FeaturePitch, analyzer.FeatureIntensity, analyzer.FeatureTranscript}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func scaleLinear(v, inLo, inHi, outLo, outHi float64) float64 {
	if inHi == inLo {
		return (outLo + outHi) / 2
	}
	t := (v - inLo) / (inHi - inLo)
	return clamp(outLo+t*(outHi-outLo), outLo, outHi)
}

// targetScore rewards values inside [lo, hi] with the top of the sub-score
// range and decays linearly toward the bottom the further v strays
// outside the band.
func targetScore(v, lo, hi, decayRate float64) float64 {
	if v >= lo && v <= hi {
		return subScoreMax
	}
	dist := lo - v
	if v > hi {
		dist = v - hi
	}
	return clamp(subScoreMax-dist*decayRate, subScoreMin, subScoreMax)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func coefficientOfVariation(xs []float64) float64 {
	m := mean(xs)
	if m == 0 {
		return 0
	}
	return stddev(xs) / math.Abs(m)
}

func wordTokens(t *transcript.AnnotatedTranscript) []transcript.Token {
	var out []transcript.Token
	for _, tok := range t.Tokens {
		if tok.Kind == transcript.TokenWord {
			out = append(out, tok)
		}
	}
	return out
}

func frameRange(e *features.Extractor, startS, endS float64) (lo, hi int) {
	hopS := float64(e.HopLength()) / float64(e.SampleRate())
	if hopS <= 0 {
		return 0, 0
	}
	return int(startS / hopS), int(endS / hopS)
}

func meanInRange(series []float64, lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi > len(series) {
		hi = len(series)
	}
	if lo >= hi {
		return 0
	}
	return mean(series[lo:hi])
}

func nearestOnsetDistanceS(onsetIndices []int, wordStartS float64, e *features.Extractor) float64 {
	if len(onsetIndices) == 0 {
		return 1.0
	}
	wordFrame := int(wordStartS / (float64(e.HopLength()) / float64(e.SampleRate())))
	best := math.MaxInt32
	for _, idx := range onsetIndices {
		d := idx - wordFrame
		if d < 0 {
			d = -d
		}
		if d < best {
			best = d
		}
	}
	return float64(best) * (float64(e.HopLength()) / float64(e.SampleRate()))
}

// categoryClarity estimates how cleanly one phoneme category was produced
// for a word using the acoustic proxy the spec assigns to that category:
// energy for vowels, ZCR for fricatives, onset-transient proximity for
// stops.
func categoryClarity(cat string, w transcript.Token, e *features.Extractor, intensity, zcr []float64, onsetIdx []int) float64 {
	lo, hi := frameRange(e, w.StartS, w.EndS)
	switch cat {
	case "vowel":
		return scaleLinear(meanInRange(intensity, lo, hi), -40, 0, subScoreMin, subScoreMax)
	case "fricative":
		return scaleLinear(meanInRange(zcr, lo, hi), 0, 0.5, subScoreMin, subScoreMax)
	case "stop":
		dist := nearestOnsetDistanceS(onsetIdx, w.StartS, e)
		return scaleLinear(dist, 0.3, 0, subScoreMin, subScoreMax)
	default:
		return (subScoreMin + subScoreMax) / 2
	}
}

// phonemeAccuracy returns (score, ok). ok is false only when no source of
// evidence (dictionary+features, or ASR confidence) is available at all.
func phonemeAccuracy(art *artifacts.Artifacts, intensity, zcr []float64, onsetIdx []int) (float64, bool) {
	var dict refdata.PronunciationDict
	if art.ReferenceData != nil {
		dict = art.ReferenceData.Pronunciation
	}

	if len(dict) > 0 && art.FeaturesLoader != nil {
		var scores []float64
		for _, w := range wordTokens(art.AnnotatedTranscript) {
			cats, found := dict[strings.ToLower(w.Text)]
			if !found || len(cats) == 0 {
				continue
			}
			var catScores []float64
			for _, cat := range cats {
				catScores = append(catScores, categoryClarity(cat, w, art.FeaturesLoader, intensity, zcr, onsetIdx))
			}
			scores = append(scores, mean(catScores))
		}
		if len(scores) > 0 {
			return clamp(mean(scores), subScoreMin, subScoreMax), true
		}
	}

	if art.Transcription != nil {
		var confs []float64
		for _, seg := range art.Transcription.Segments {
			for _, w := range seg.Words {
				if w.Confidence > 0 {
					confs = append(confs, w.Confidence*100)
				}
			}
		}
		if len(confs) > 0 {
			return clamp(mean(confs), subScoreMin, subScoreMax), true
		}
	}

	return 0, false
}

func prosodySubScore(pitch []float64, onsetStrength []float64, onsetIdx []int, intensity []float64) float64 {
	var voicedPitch []float64
	for _, p := range pitch {
		if p > 0 {
			voicedPitch = append(voicedPitch, p)
		}
	}
	intonation := targetScore(coefficientOfVariation(voicedPitch), 0.05, 0.25, 80)

	var intervals []float64
	for i := 1; i < len(onsetIdx); i++ {
		intervals = append(intervals, float64(onsetIdx[i]-onsetIdx[i-1]))
	}
	rhythmCV := coefficientOfVariation(intervals)
	rhythm := targetScore(rhythmCV, 0, 0.6, 40)

	stress := targetScore(coefficientOfVariation(intensity), 0.4, 0.8, 60)

	return mean([]float64{intonation, rhythm, stress})
}

func fluencySubScore(t *transcript.AnnotatedTranscript) float64 {
	pauseRatio := 0.0
	if t.TotalPauseTime+t.SpeakingTime > 0 {
		pauseRatio = t.TotalPauseTime / (t.TotalPauseTime + t.SpeakingTime)
	}
	pauseScore := targetScore(pauseRatio, 0.10, 0.25, 200)

	hesitationCount := 0
	for _, tok := range t.Tokens {
		if tok.Kind == transcript.TokenPause && tok.DurationS > hesitationPauseS {
			hesitationCount++
		}
	}
	hesitationRatio := 0.0
	if t.SpeakingTime > 0 {
		hesitationRatio = float64(hesitationCount) / t.SpeakingTime
	}
	hesitationScore := clamp(subScoreMax-hesitationRatio*500, subScoreMin, subScoreMax)

	var interWordGaps []float64
	var prevEnd float64
	havePrev := false
	for _, tok := range t.Tokens {
		if tok.Kind != transcript.TokenWord {
			continue
		}
		if havePrev {
			interWordGaps = append(interWordGaps, tok.StartS-prevEnd)
		}
		prevEnd = tok.EndS
		havePrev = true
	}
	interWordCVScore := targetScore(coefficientOfVariation(interWordGaps), 0, 0.5, 60)

	return mean([]float64{pauseScore, hesitationScore, interWordCVScore})
}

func articulationSubScore(centroid, zcr []float64) float64 {
	avgCentroid := mean(centroid)
	ratio := avgCentroid / typicalVoiceCentroidHz
	centroidScore := targetScore(ratio, 0.8, 1.2, 80)

	zcrCV := coefficientOfVariation(zcr)
	zcrScore := clamp(subScoreMin+zcrCV*80, subScoreMin, subScoreMax)

	return mean([]float64{centroidScore, zcrScore})
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
	zcr, err := art.FeaturesLoader.ZCR()
	if err != nil {
		return analyzer.Result{ID: a.ID(), Status: analyzer.StatusDegraded, Score: degradedScore, Message: err.Error()}, nil
	}
	centroid, _, err := art.FeaturesLoader.Spectral()
	if err != nil {
		return analyzer.Result{ID: a.ID(), Status: analyzer.StatusDegraded, Score: degradedScore, Message: err.Error()}, nil
	}
	onsetStrength, onsetIdx, err := art.FeaturesLoader.Onsets()
	if err != nil {
		return analyzer.Result{ID: a.ID(), Status: analyzer.StatusDegraded, Score: degradedScore, Message: err.Error()}, nil
	}

	phoneme, ok := phonemeAccuracy(art, intensity, zcr, onsetIdx)
	if !ok {
		return analyzer.Result{
			ID:      a.ID(),
			Status:  analyzer.StatusDegraded,
			Score:   degradedScore,
			Message: "no pronunciation dictionary, acoustic features, or ASR confidence available for phoneme scoring",
		}, nil
	}

	prosody := prosodySubScore(pitch, onsetStrength, onsetIdx, intensity)
	fluency := fluencySubScore(t)
	articulation := articulationSubScore(centroid, zcr)

	w := art.RequestMetadata.DomainProfile.ResolvePronunciationWeights()
	total := phoneme*w.PhonemeAccuracy + prosody*w.Prosody + fluency*w.Fluency + articulation*w.Articulation

	var accentBoost float64
	if phoneme < accentBoostThreshold {
		accentBoost = clamp((accentBoostThreshold-phoneme)*0.3, 0, maxAccentBoost)
		total += accentBoost
	}

	var feedback []string
	if phoneme < accentBoostThreshold {
		feedback = append(feedback, "practice clearer articulation of individual words, especially consonant clusters")
	}
	if fluency < subScoreMin+10 {
		feedback = append(feedback, "work on smoother pacing between words to reduce hesitation")
	}

	return analyzer.Result{
		ID:       a.ID(),
		Status:   analyzer.StatusOK,
		Score:    clamp(total, 0, 100),
		Feedback: feedback,
		Details: map[string]any{
			"phoneme_accuracy":   phoneme,
			"prosody_score":      prosody,
			"fluency_score":      fluency,
			"articulation_score": articulation,
			"accent_boost":       accentBoost,
		},
	}, nil
}

// Package content implements the Content-Quality Analyzer (spec.md §4.7,
// component C7): lexical diversity, word-complexity against a frequency
// percentile table, heuristic syntactic cues (part-of-speech tagging is
// abstracted to suffix/word-list heuristics since no POS tagger appears
// anywhere in the example corpus), and a repetition penalty.
//
// Word-complexity scoring is grounded in refdata.WordFrequencyTable
// (internal/refdata), itself modeled on the teacher's own binary
// reference-file loading discipline. Domain vocabulary bonuses are
// grounded in internal/domain, restoring the distillation-dropped
// per-domain profile concept noted in SPEC_FULL.md. Sentence boundaries
// for the syntactic sub-score come from transcript.AnnotatedTranscript's
// Sentences field (C3's recovery of each ASR segment's punctuated
// display text), since the cleaned word list built here strips all
// punctuation.
package content

import (
	"context"
	"regexp"
	"strings"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/domain"
	"github.com/speechlab/evaluator/internal/refdata"
	"github.com/speechlab/evaluator/internal/transcript"
)

const (
	repetitionThreshold   = 3
	repetitionPenaltyEach = 2.0
	maxRepetitionPenalty  = 15.0

	rescaleMin = 50.0
	rescaleMax = 95.0

	degradedScore = 50.0
)

var subordinatingConjunctions = map[string]struct{}{
	"because": {}, "although": {}, "since": {}, "while": {}, "if": {},
	"when": {}, "whereas": {}, "unless": {}, "though": {}, "before": {},
	"after": {}, "that": {},
}

var adjectiveSuffixes = []string{"ful", "ous", "ive", "able", "ible", "al"}

var wordCleanRE = regexp.MustCompile(`[^a-zA-Z']+`)

// Analyzer implements analyzer.Analyzer for C7.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) ID() string { return "content" }

func (a *Analyzer) RequiredFeatures() []analyzer.RequiredFeature {
	return []analyzer.RequiredFeature{analyzer.FeatureTranscript}
}

func cleanWord(w string) string {
	return strings.ToLower(wordCleanRE.ReplaceAllString(w, ""))
}

func wordList(t *transcript.AnnotatedTranscript) []string {
	out := make([]string, 0, t.WordCount)
	for _, tok := range t.Tokens {
		if tok.Kind != transcript.TokenWord {
			continue
		}
		if w := cleanWord(tok.Text); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// frequencyComplexity returns the frequency-rank component of a word's
// complexity score (spec.md §4.7's percentile bands): 1 = very common, 3 =
// rare. Falls back to a length heuristic when no reference table is loaded
// or the word is unknown to it, mirroring vocabulary_evaluation.py's
// behavior when frequency data is missing.
func frequencyComplexity(word string, freq refdata.WordFrequencyTable) float64 {
	pct := -1.0
	if freq != nil {
		pct = freq.Percentile(word)
	}
	switch {
	case pct < 0:
		switch {
		case len(word) >= 9:
			return 3
		case len(word) >= 6:
			return 2
		case len(word) >= 4:
			return 1.5
		default:
			return 1
		}
	case pct >= 75:
		return 1
	case pct >= 50:
		return 1.5
	case pct >= 25:
		return 2
	default:
		return 3
	}
}

// lengthComplexity mirrors vocabulary_evaluation.py's length_score: raw
// word length over 3.5, clamped to [1, 3].
func lengthComplexity(word string) float64 {
	v := float64(len(word)) / 3.5
	if v < 1 {
		return 1
	}
	if v > 3 {
		return 3
	}
	return v
}

// semanticComplexity stands in for vocabulary_evaluation.py's WordNet-based
// semantic_score (meaning count, definition length, hypernym depth), since
// no WordNet-equivalent corpus is available here: domain-term membership is
// the only semantic-specificity signal this pipeline has, so a recognized
// domain term scores as specialized (3) and everything else scores at the
// original's documented default middle score (1.5).
func semanticComplexity(word string, profile *domain.Profile) float64 {
	if profile.Contains(word) {
		return 3
	}
	return 1.5
}

// complexityScore blends frequency, length, and semantic complexity by the
// domain's ComplexityWeights, then adds the domain's flat per-term
// adjustment (vocabulary_evaluation.py's domain_terms), clamped to [1, 3.5]
// to preserve this package's scoring's existing output range.
func complexityScore(word string, freq refdata.WordFrequencyTable, profile *domain.Profile) float64 {
	w := profile.ResolveComplexityWeights()
	score := frequencyComplexity(word, freq)*w.FrequencyWeight +
		lengthComplexity(word)*w.LengthWeight +
		semanticComplexity(word, profile)*w.SemanticWeight +
		profile.TermAdjustment(word)
	if score < 1 {
		score = 1
	}
	if score > 3.5 {
		score = 3.5
	}
	return score
}

func hasAdjectiveSuffix(word string) bool {
	for _, suf := range adjectiveSuffixes {
		if strings.HasSuffix(word, suf) {
			return true
		}
	}
	return false
}

// syntacticScore is a heuristic stand-in for the spec's abstracted
// POS-tagging cues: verb/adjective-adverb density via suffix matching,
// average sentence length against an ideal band, and subordinating
// conjunction density.
func syntacticScore(words []string, sentences []string) float64 {
	if len(words) == 0 {
		return 0
	}

	verbLike, adjAdvLike, subCount := 0, 0, 0
	for _, w := range words {
		if strings.HasSuffix(w, "ing") || strings.HasSuffix(w, "ed") {
			verbLike++
		}
		if strings.HasSuffix(w, "ly") || hasAdjectiveSuffix(w) {
			adjAdvLike++
		}
		if _, ok := subordinatingConjunctions[w]; ok {
			subCount++
		}
	}

	verbAdjRatio := float64(verbLike+adjAdvLike) / float64(len(words))
	verbAdjScore := verbAdjRatio * 300
	if verbAdjScore > 100 {
		verbAdjScore = 100
	}

	numSentences := len(sentences)
	if numSentences == 0 {
		numSentences = 1
	}
	avgSentenceLen := float64(len(words)) / float64(numSentences)
	sentenceLenScore := 100 - abs(avgSentenceLen-18)*3
	if sentenceLenScore < 0 {
		sentenceLenScore = 0
	}
	if sentenceLenScore > 100 {
		sentenceLenScore = 100
	}

	subScore := float64(subCount) / float64(numSentences) * 200
	if subScore > 100 {
		subScore = 100
	}

	return sentenceLenScore*0.5 + verbAdjScore*0.3 + subScore*0.2
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
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

	words := wordList(t)
	if len(words) == 0 {
		return analyzer.Result{
			ID:      a.ID(),
			Status:  analyzer.StatusDegraded,
			Score:   degradedScore,
			Message: "no scorable words after cleaning",
		}, nil
	}

	var freq refdata.WordFrequencyTable
	var stopwords map[string]struct{}
	if art.ReferenceData != nil {
		freq = art.ReferenceData.WordFrequencies
		stopwords = art.ReferenceData.Stopwords
	}
	profile := art.RequestMetadata.DomainProfile

	unique := make(map[string]struct{}, len(words))
	wordCounts := make(map[string]int, len(words))
	var complexitySum float64
	rareCount := 0
	for _, w := range words {
		unique[w] = struct{}{}
		wordCounts[w]++
		c := complexityScore(w, freq, profile)
		complexitySum += c
		// 2.5 is vocabulary_evaluation.py's own advanced-word cutoff
		// ("Count advanced words (score >= 2.5)"), not this package's old
		// 3.0: under the restored weighted blend a rare word with no
		// domain-term bonus tops out near 2.55, never reaching 3.
		if c >= 2.5 {
			rareCount++
		}
	}
	lexicalDiversity := float64(len(unique)) / float64(len(words))
	avgComplexity := complexitySum / float64(len(words))
	complexityPct := (avgComplexity - 1.0) / 2.5 * 100
	if complexityPct < 0 {
		complexityPct = 0
	}
	if complexityPct > 100 {
		complexityPct = 100
	}

	repetitionPenalty := 0.0
	for w, count := range wordCounts {
		if stopwords != nil {
			if _, isStop := stopwords[w]; isStop {
				continue
			}
		}
		if count > repetitionThreshold {
			repetitionPenalty += repetitionPenaltyEach
		}
	}
	if repetitionPenalty > maxRepetitionPenalty {
		repetitionPenalty = maxRepetitionPenalty
	}

	syntactic := syntacticScore(words, t.Sentences)

	blend := complexityPct*0.4 + syntactic*0.3 + lexicalDiversity*100*0.3
	blend -= repetitionPenalty
	if blend < 0 {
		blend = 0
	}
	if blend > 100 {
		blend = 100
	}

	score := rescaleMin + (blend/100)*(rescaleMax-rescaleMin)

	advancedPct := float64(rareCount) / float64(len(words)) * 100
	var advancedBonus float64
	switch {
	case advancedPct > 15:
		advancedBonus = 5
	case advancedPct > 10:
		advancedBonus = 3
	case advancedPct > 5:
		advancedBonus = 1
	}
	score += advancedBonus
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	var feedback []string
	if lexicalDiversity < 0.4 {
		feedback = append(feedback, "vary your word choice; the same words recur too often")
	}
	if repetitionPenalty > 0 {
		feedback = append(feedback, "avoid repeating the same non-stopword more than a few times")
	}
	if complexityPct < 30 {
		feedback = append(feedback, "incorporate more precise or domain-specific vocabulary")
	}

	return analyzer.Result{
		ID:       a.ID(),
		Status:   analyzer.StatusOK,
		Score:    score,
		Feedback: feedback,
		Details: map[string]any{
			"lexical_diversity":  lexicalDiversity,
			"word_complexity":    complexityPct,
			"syntactic_score":    syntactic,
			"repetition_penalty": repetitionPenalty,
			"advanced_word_pct":  advancedPct,
			"advanced_bonus":     advancedBonus,
		},
	}, nil
}

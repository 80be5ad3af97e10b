package content

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/refdata"
	"github.com/speechlab/evaluator/internal/transcript"
)

var testSentenceSplitRE = regexp.MustCompile(`[.!?]+`)

// buildTranscript mimics C3's real split between unpunctuated word tokens
// (what ASR engines actually hand back per word) and Sentences (recovered
// separately from the engine's punctuated segment text) — text here plays
// the role of one ASR segment's punctuated display text.
func buildTranscript(text string) *transcript.AnnotatedTranscript {
	words := strings.Fields(text)
	t := &transcript.AnnotatedTranscript{WordCount: len(words)}
	for _, w := range words {
		t.Tokens = append(t.Tokens, transcript.Token{Kind: transcript.TokenWord, Text: strings.Trim(w, ".!?")})
	}
	for _, s := range testSentenceSplitRE.Split(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			t.Sentences = append(t.Sentences, s)
		}
	}
	return t
}

func TestAnalyzeEmptyTranscriptDegrades(t *testing.T) {
	res, err := New().Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: &transcript.AnnotatedTranscript{}})
	require.NoError(t, err)
	require.Equal(t, analyzer.StatusDegraded, res.Status)
}

func TestAnalyzeScoresWithinRescaleBand(t *testing.T) {
	text := "the quarterly results demonstrate substantial growth across every region. " +
		"however we must remain cautious because market conditions fluctuate rapidly. " +
		"therefore we propose a conservative forecast for the coming fiscal year."
	art := &artifacts.Artifacts{AnnotatedTranscript: buildTranscript(text)}

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Status))
	require.GreaterOrEqual(t, res.Score, 0.0)
	require.LessOrEqual(t, res.Score, 100.0)
}

func TestRepetitiveTextHasLowerLexicalDiversity(t *testing.T) {
	repetitive := strings.Repeat("banana ", 10) + "apple orange plum grape kiwi mango"
	plain := "the quarterly results demonstrate substantial growth across the wider region this year"

	repRes, err := New().Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: buildTranscript(repetitive)})
	require.NoError(t, err)
	plainRes, err := New().Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: buildTranscript(plain)})
	require.NoError(t, err)

	require.Less(t, repRes.Details["lexical_diversity"], plainRes.Details["lexical_diversity"])
}

func TestWordComplexityUsesReferenceTable(t *testing.T) {
	freq := refdata.WordFrequencyTable{"the": 99, "sesquipedalian": 2}
	art := &artifacts.Artifacts{
		AnnotatedTranscript: buildTranscript("the sesquipedalian orator captivated the audience"),
		ReferenceData:       &refdata.Tables{WordFrequencies: freq},
	}

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Status))
	require.Greater(t, res.Details["advanced_word_pct"], 0.0)
}

package structure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/transcript"
)

func wordToken(text string) transcript.Token {
	return transcript.Token{Kind: transcript.TokenWord, Text: text}
}

func buildTranscript(words []string, sentences []string) *transcript.AnnotatedTranscript {
	t := &transcript.AnnotatedTranscript{WordCount: len(words), Sentences: sentences}
	for _, w := range words {
		t.Tokens = append(t.Tokens, wordToken(w))
	}
	return t
}

// wordsFromSentences builds the plain (unpunctuated) word-token list a
// real ASR engine would return for this text, mirroring that neither
// engine's per-word text carries sentence-ending punctuation.
func wordsFromSentences(sentences []string) []string {
	var words []string
	for _, s := range sentences {
		words = append(words, splitFields(s)...)
	}
	return words
}

func splitFields(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func TestAnalyzeEmptyTranscriptDegrades(t *testing.T) {
	a := New()
	res, err := a.Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: &transcript.AnnotatedTranscript{}})
	require.NoError(t, err)
	require.Equal(t, analyzer.StatusDegraded, res.Status)
}

func TestAnalyzeWithIntroAndConclusionScoresHigherThanBase(t *testing.T) {
	sentences := []string{
		"good morning everyone and welcome to today's talk",
		"today i will cover three topics in detail",
		"the first topic is our quarterly performance",
		"the second topic is our roadmap for next year",
		"however we also need to discuss risks",
		"therefore we have built in contingency plans",
		"in conclusion our strategy remains strong",
		"thank you for listening today",
	}
	art := &artifacts.Artifacts{AnnotatedTranscript: buildTranscript(wordsFromSentences(sentences), sentences)}

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Status))
	require.Greater(t, res.Score, 70.0)
	require.LessOrEqual(t, res.Score, 100.0)
}

func TestAnalyzeWithoutMarkersUsesDefaultBoundaries(t *testing.T) {
	sentences := []string{
		"we shipped the new release last week",
		"customers have responded well so far",
		"revenue grew by double digits",
		"we expect this trend to continue",
		"the team is already planning the next milestone",
	}
	art := &artifacts.Artifacts{AnnotatedTranscript: buildTranscript(wordsFromSentences(sentences), sentences)}

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Status))
	require.Equal(t, 1, res.Details["intro_end"])
}

package disfluency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/transcript"
)

func wordTokens(words []string) []transcript.Token {
	toks := make([]transcript.Token, len(words))
	for i, w := range words {
		toks[i] = transcript.Token{Kind: transcript.TokenWord, Text: w, StartS: float64(i)}
	}
	return toks
}

func TestExcessiveFillersHardFloorsToZero(t *testing.T) {
	words := make([]string, 0, 100)
	for i := 0; i < 80; i++ {
		words = append(words, "content")
	}
	for i := 0; i < 20; i++ {
		words = append(words, "um")
	}
	tr := &transcript.AnnotatedTranscript{WordCount: len(words), Tokens: wordTokens(words)}

	res, err := New(nil).Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: tr})
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Status))
	require.Equal(t, 0.0, res.Score)
}

func TestCleanTranscriptScoresHigh(t *testing.T) {
	words := []string{"the", "quarterly", "results", "were", "strong", "across", "every", "region", "this", "year"}
	tr := &transcript.AnnotatedTranscript{WordCount: len(words), Tokens: wordTokens(words)}

	res, err := New(nil).Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: tr})
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Status))
	require.Greater(t, res.Score, 80.0)
}

func TestLongIntraSegmentPauseForcesZeroPauseScore(t *testing.T) {
	tokens := wordTokens([]string{"hello", "world"})
	tokens = append(tokens, transcript.Token{Kind: transcript.TokenPause, DurationS: 6.0, Source: transcript.PauseIntraSegment})
	tr := &transcript.AnnotatedTranscript{WordCount: 2, Tokens: tokens}

	res, err := New(nil).Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: tr})
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Details["pause_score"])
}

func TestEmptyTranscriptDegrades(t *testing.T) {
	res, err := New(nil).Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: &transcript.AnnotatedTranscript{}})
	require.NoError(t, err)
	require.Equal(t, analyzer.StatusDegraded, res.Status)
}

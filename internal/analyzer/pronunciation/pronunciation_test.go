package pronunciation

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/asr"
	"github.com/speechlab/evaluator/internal/features"
	"github.com/speechlab/evaluator/internal/transcript"
)

func sineWave(freq float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func baseTranscript() *transcript.AnnotatedTranscript {
	return &transcript.AnnotatedTranscript{
		WordCount:    3,
		SpeakingTime: 1.5,
		Tokens: []transcript.Token{
			{Kind: transcript.TokenWord, Text: "hello", StartS: 0.0, EndS: 0.4},
			{Kind: transcript.TokenWord, Text: "there", StartS: 0.5, EndS: 0.9},
			{Kind: transcript.TokenWord, Text: "friend", StartS: 1.0, EndS: 1.4},
		},
	}
}

func TestDegradesWithoutDictionaryOrASRConfidence(t *testing.T) {
	sampleRate := 16000
	extractor := features.New(sineWave(150, sampleRate, sampleRate), sampleRate)
	art := &artifacts.Artifacts{AnnotatedTranscript: baseTranscript(), FeaturesLoader: extractor}

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, analyzer.StatusDegraded, res.Status)
}

func TestFallsBackToASRConfidence(t *testing.T) {
	sampleRate := 16000
	extractor := features.New(sineWave(150, sampleRate, sampleRate), sampleRate)
	tr := &asr.TranscriptionResult{Segments: []asr.Segment{{Words: []asr.WordToken{
		{Text: "hello", StartS: 0, EndS: 0.4, Confidence: 0.9},
		{Text: "there", StartS: 0.5, EndS: 0.9, Confidence: 0.8},
	}}}}
	art := &artifacts.Artifacts{AnnotatedTranscript: baseTranscript(), FeaturesLoader: extractor, Transcription: tr}

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Status))
	require.GreaterOrEqual(t, res.Details["phoneme_accuracy"], subScoreMin)
	require.LessOrEqual(t, res.Details["phoneme_accuracy"], subScoreMax)
}

func TestEmptyTranscriptDegrades(t *testing.T) {
	res, err := New().Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: &transcript.AnnotatedTranscript{}})
	require.NoError(t, err)
	require.Equal(t, analyzer.StatusDegraded, res.Status)
}

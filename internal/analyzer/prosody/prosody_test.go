package prosody

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/artifacts"
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

func wordToken(text string, start, end float64) transcript.Token {
	return transcript.Token{Kind: transcript.TokenWord, Text: text, StartS: start, EndS: end}
}

func TestGenderAutoClassifiesLowPitchAsMale(t *testing.T) {
	sampleRate := 16000
	pcm := sineWave(120, sampleRate, sampleRate*2)
	extractor := features.New(pcm, sampleRate)

	tr := &transcript.AnnotatedTranscript{
		WordCount: 2,
		Tokens: []transcript.Token{
			wordToken("hello", 0.1, 0.5),
			wordToken("world", 0.6, 1.0),
		},
	}
	art := &artifacts.Artifacts{
		AnnotatedTranscript: tr,
		FeaturesLoader:      extractor,
	}
	art.RequestMetadata.GenderHint = "auto"

	res, err := New(0.5).Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Status))
	require.Equal(t, "male", res.Details["gender"])
	require.Equal(t, 85.0, res.Details["pitch_band_low"])
	require.Equal(t, 180.0, res.Details["pitch_band_high"])
}

func TestExplicitGenderHintOverridesAutoDetection(t *testing.T) {
	sampleRate := 16000
	pcm := sineWave(120, sampleRate, sampleRate*2)
	extractor := features.New(pcm, sampleRate)

	tr := &transcript.AnnotatedTranscript{
		WordCount: 1,
		Tokens:    []transcript.Token{wordToken("hello", 0.1, 0.5)},
	}
	art := &artifacts.Artifacts{AnnotatedTranscript: tr, FeaturesLoader: extractor}
	art.RequestMetadata.GenderHint = "female"

	res, err := New(0.5).Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, "female", res.Details["gender"])
}

func TestEmptyTranscriptDegrades(t *testing.T) {
	res, err := New(0.5).Analyze(context.Background(), &artifacts.Artifacts{AnnotatedTranscript: &transcript.AnnotatedTranscript{}})
	require.NoError(t, err)
	require.Equal(t, "degraded", string(res.Status))
}

package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/asr"
)

func TestBuildPerfectPauseStructure(t *testing.T) {
	result := &asr.TranscriptionResult{
		Segments: []asr.Segment{
			{Words: []asr.WordToken{
				{Text: "hello", StartS: 0.0, EndS: 0.4},
				{Text: "world", StartS: 0.5, EndS: 0.9},
			}},
			{Words: []asr.WordToken{
				{Text: "again", StartS: 3.2, EndS: 3.6},
			}},
		},
	}

	at := Build(result, 3.6)
	require.Equal(t, 1, at.PauseCount)
	require.InDelta(t, 2.3, at.TotalPauseTime, 1e-9)
	require.Equal(t, 3, at.WordCount)
}

func TestBuildIntraSegmentPause(t *testing.T) {
	result := &asr.TranscriptionResult{
		Segments: []asr.Segment{
			{Words: []asr.WordToken{
				{Text: "one", StartS: 0.0, EndS: 0.3},
				{Text: "two", StartS: 1.5, EndS: 1.8},
			}},
		},
	}

	at := Build(result, 1.8)
	require.Equal(t, 1, at.PauseCount)
	require.Equal(t, PauseIntraSegment, at.Tokens[1].Source)
	require.InDelta(t, 1.2, at.Tokens[1].DurationS, 1e-9)
}

func TestBuildGapBelowThresholdDiscarded(t *testing.T) {
	result := &asr.TranscriptionResult{
		Segments: []asr.Segment{
			{Words: []asr.WordToken{
				{Text: "one", StartS: 0.0, EndS: 0.3},
				{Text: "two", StartS: 1.2, EndS: 1.5},
			}},
		},
	}

	at := Build(result, 1.5)
	require.Equal(t, 0, at.PauseCount)
	require.Len(t, at.Tokens, 2)
}

func TestSpeakingTimeClampedToMinimum(t *testing.T) {
	result := &asr.TranscriptionResult{
		Segments: []asr.Segment{
			{Words: []asr.WordToken{{Text: "hi", StartS: 0.0, EndS: 0.2}}},
		},
	}

	at := Build(result, 0.0)
	require.Equal(t, minSpeakingTimeS, at.SpeakingTime)
}

func TestSerializeParseRoundTrip(t *testing.T) {
	result := &asr.TranscriptionResult{
		Segments: []asr.Segment{
			{Words: []asr.WordToken{
				{Text: "hello", StartS: 0.0, EndS: 0.4},
				{Text: "world", StartS: 1.6, EndS: 2.0},
			}},
			{Words: []asr.WordToken{
				{Text: "again", StartS: 4.5, EndS: 4.9},
			}},
		},
	}

	at := Build(result, 4.9)
	text := Serialize(at)
	require.Equal(t, "hello [1.2 second pause] world [2.5 second pause] again", text)

	parsed := Parse(text)
	require.Len(t, parsed, len(at.Tokens))
	for i, tok := range at.Tokens {
		require.Equal(t, tok.Kind, parsed[i].Kind)
		if tok.Kind == TokenWord {
			require.Equal(t, tok.Text, parsed[i].Text)
		} else {
			require.InDelta(t, tok.DurationS, parsed[i].DurationS, 1e-9)
		}
	}

	reparsed := Parse(Serialize(at))
	require.Equal(t, parsed, reparsed)
}

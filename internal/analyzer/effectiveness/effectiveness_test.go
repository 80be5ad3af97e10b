package effectiveness

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/transcript"
)

var testSentenceSplitRE = regexp.MustCompile(`[.!?]+`)

// buildTranscript mirrors C3's real split between unpunctuated word tokens
// and Sentences (recovered separately from the engine's punctuated segment
// text) — text here plays the role of one ASR segment's punctuated display
// text.
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

func TestOnTopicTranscriptScoresHigherThanOffTopic(t *testing.T) {
	topic := "quarterly sales performance and revenue growth"
	onTopicText := "today i will discuss our quarterly sales performance. " +
		"our revenue growth exceeded targets across every region. " +
		"in conclusion our sales strategy is working well."
	offTopicText := "the weather today is sunny with a light breeze. " +
		"squirrels gathered acorns near the old oak tree. " +
		"finally the birds returned to their nests."

	onArt := &artifacts.Artifacts{AnnotatedTranscript: buildTranscript(onTopicText)}
	onArt.RequestMetadata.Topic = topic
	offArt := &artifacts.Artifacts{AnnotatedTranscript: buildTranscript(offTopicText)}
	offArt.RequestMetadata.Topic = topic

	onRes, err := New().Analyze(context.Background(), onArt)
	require.NoError(t, err)
	offRes, err := New().Analyze(context.Background(), offArt)
	require.NoError(t, err)

	require.Equal(t, "ok", string(onRes.Status))
	require.Equal(t, "ok", string(offRes.Status))
	require.Greater(t, onRes.Score, offRes.Score)
}

func TestScoreWithinBounds(t *testing.T) {
	art := &artifacts.Artifacts{AnnotatedTranscript: buildTranscript("a short talk about nothing in particular")}
	art.RequestMetadata.Topic = "nothing in particular"

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Score, 0.0)
	require.LessOrEqual(t, res.Score, 100.0)
}

func TestEmptyTranscriptDegrades(t *testing.T) {
	art := &artifacts.Artifacts{AnnotatedTranscript: &transcript.AnnotatedTranscript{}}
	art.RequestMetadata.Topic = "anything"

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, "degraded", string(res.Status))
}

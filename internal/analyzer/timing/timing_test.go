package timing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/audioprobe"
)

func TestParseExpectedDurationHyphenAndEnDash(t *testing.T) {
	minS, maxS, err := ParseExpectedDuration("5-7 minutes")
	require.NoError(t, err)
	require.Equal(t, 300.0, minS)
	require.Equal(t, 420.0, maxS)

	minS, maxS, err = ParseExpectedDuration("5–7 minutes")
	require.NoError(t, err)
	require.Equal(t, 300.0, minS)
	require.Equal(t, 420.0, maxS)
}

func TestParseExpectedDurationSingleValue(t *testing.T) {
	minS, maxS, err := ParseExpectedDuration("5 minutes")
	require.NoError(t, err)
	require.Equal(t, 300.0, minS)
	require.Equal(t, 300.0, maxS)
}

func TestParseExpectedDurationRejectsGarbage(t *testing.T) {
	_, _, err := ParseExpectedDuration("not a duration")
	require.Error(t, err)
}

func TestWithinRangePreparedSpeechScenario(t *testing.T) {
	art := &artifacts.Artifacts{
		AudioRef: &audioprobe.AudioRef{DurationS: 360},
	}
	art.RequestMetadata.ExpectedDuration = "5-7 minutes"

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, string(StatusWithinRange), res.Details["status"])
	require.GreaterOrEqual(t, res.Score, 90.0)
	require.LessOrEqual(t, res.Score, 100.0)
}

func TestTooShortScenario(t *testing.T) {
	art := &artifacts.Artifacts{
		AudioRef: &audioprobe.AudioRef{DurationS: 60},
	}
	art.RequestMetadata.ExpectedDuration = "5-7 minutes"

	res, err := New().Analyze(context.Background(), art)
	require.NoError(t, err)
	require.Equal(t, string(StatusTooShort), res.Details["status"])
	require.GreaterOrEqual(t, res.Score, 50.0)
	require.LessOrEqual(t, res.Score, 80.0)
}

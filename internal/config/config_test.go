package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigIsValid(t *testing.T) {
	tcs := []struct {
		name          string
		cfg           Config
		expectedError string
	}{
		{
			name:          "empty config",
			cfg:           Config{},
			expectedError: "config cannot be empty",
		},
		{
			name:          "invalid TranscribeAPI",
			cfg:           Config{TranscribeAPI: "openai"},
			expectedError: "TranscribeAPI value is not valid",
		},
		{
			name:          "azure missing key",
			cfg:           Config{TranscribeAPI: TranscribeAPIAzure, NumThreads: 1, WorkerCount: 1, AnalyzerTimeoutMs: 1000},
			expectedError: "AzureSpeechKey cannot be empty when TranscribeAPI is azure",
		},
		{
			name: "whisper missing model file",
			cfg: Config{
				TranscribeAPI: TranscribeAPIWhisperCPP, NumThreads: 1, WorkerCount: 1, AnalyzerTimeoutMs: 1000,
			},
			expectedError: "WhisperModelFile cannot be empty when TranscribeAPI is whisper.cpp",
		},
		{
			name: "weights don't sum to one",
			cfg: Config{
				TranscribeAPI: TranscribeAPIWhisperCPP, NumThreads: 1, WorkerCount: 1, AnalyzerTimeoutMs: 1000,
				WhisperModelFile: "/tmp/model.bin",
				Weights:          map[string]float64{"structure": 0.5},
			},
			expectedError: "weights should sum to 1.0, got 0.500000",
		},
		{
			name: "valid",
			cfg: Config{
				TranscribeAPI: TranscribeAPIWhisperCPP, NumThreads: 1, WorkerCount: 1, AnalyzerTimeoutMs: 1000,
				WhisperModelFile: "/tmp/model.bin",
				Weights:          DefaultWeights,
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.IsValid()
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()

	require.Equal(t, TranscribeAPIDefault, c.TranscribeAPI)
	require.Equal(t, WorkerCountDefault, c.WorkerCount)
	require.Equal(t, AnalyzerTimeoutMsDefault, c.AnalyzerTimeoutMs)
	require.Equal(t, GenderHintDefaultDefault, c.GenderHintDefault)
	require.Equal(t, GenderTieBreakThresholdDefault, c.GenderTieBreakThreshold)

	sum := 0.0
	for _, w := range c.Weights {
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-6)
}

func TestMapRoundTrip(t *testing.T) {
	var c Config
	c.SetDefaults()
	c.AzureSpeechKey = "key"
	c.DomainProfiles = []string{"business", "academic"}

	var out Config
	out.FromMap(c.ToMap())

	require.Equal(t, c.TranscribeAPI, out.TranscribeAPI)
	require.Equal(t, c.AzureSpeechKey, out.AzureSpeechKey)
	require.Equal(t, c.DomainProfiles, out.DomainProfiles)
	require.InDeltaMapValues(t, c.Weights, out.Weights, 1e-9)
}

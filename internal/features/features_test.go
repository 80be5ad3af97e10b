package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func sineWave(freq float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
	}
	return out
}

func TestPitchDetectsSineFrequency(t *testing.T) {
	sampleRate := 16000
	pcm := sineWave(150, sampleRate, sampleRate) // 1s of 150Hz tone
	e := New(pcm, sampleRate)

	pitch, err := e.Pitch()
	require.NoError(t, err)
	require.NotEmpty(t, pitch)

	mid := pitch[len(pitch)/2]
	require.InDelta(t, 150, mid, 10)
}

func TestIntensityLowForSilence(t *testing.T) {
	sampleRate := 16000
	pcm := make([]float32, sampleRate)
	e := New(pcm, sampleRate)

	intensity, err := e.Intensity()
	require.NoError(t, err)
	for _, v := range intensity {
		require.Less(t, v, -50.0)
	}
}

func TestZCRHigherForHighToneThanLowTone(t *testing.T) {
	sampleRate := 16000
	toneE := New(sineWave(100, sampleRate, sampleRate), sampleRate)
	highE := New(sineWave(4000, sampleRate, sampleRate), sampleRate)

	toneZCR, err := toneE.ZCR()
	require.NoError(t, err)
	highZCR, err := highE.ZCR()
	require.NoError(t, err)

	require.Less(t, avg(toneZCR), avg(highZCR))
}

func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func TestMFCCShape(t *testing.T) {
	sampleRate := 16000
	e := New(sineWave(200, sampleRate, sampleRate), sampleRate)

	mfcc, err := e.MFCC()
	require.NoError(t, err)
	require.Equal(t, numMFCC, len(mfcc))
	require.Equal(t, e.numFrames(), len(mfcc[0]))
}

func TestOnsetStrengthComputedForConstantTone(t *testing.T) {
	sampleRate := 16000
	e := New(sineWave(200, sampleRate, sampleRate), sampleRate)

	strength, _, err := e.Onsets()
	require.NoError(t, err)
	require.NotEmpty(t, strength)
}

func TestFrameToTime(t *testing.T) {
	e := New(make([]float32, 16000), 16000)
	require.InDelta(t, 0.0, e.FrameToTime(0), 1e-9)
	require.Greater(t, e.FrameToTime(10), 0.0)
}

func TestEmptyAudioReturnsFeatureError(t *testing.T) {
	e := New(nil, 16000)
	_, err := e.Pitch()
	require.Error(t, err)
}

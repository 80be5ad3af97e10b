// Package audioprobe implements the Audio Probe (spec.md §4.1, component
// C1): it reports duration, sample rate and basic waveform metadata for an
// audio file and decodes it to mono PCM, attempting a WAV decode first and
// falling back to an Ogg/Opus decode when the WAV path fails.
//
// The WAV path is grounded in the teacher's own WAV header handling
// (cmd/transcriber/apis/azure/wav.go), generalized from a hardcoded
// 16kHz/mono assumption to a real decoder
// (github.com/go-audio/wav) that reads whatever sample rate and channel
// count the file actually declares. The fallback path reuses the teacher's
// Ogg container reader and cgo Opus decoder
// (cmd/transcriber/ogg, cmd/transcriber/opus) to count decoded frames when
// the input can't be decoded as WAV.
package audioprobe

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"github.com/speechlab/evaluator/internal/audioprobe/ogg"
	"github.com/speechlab/evaluator/internal/audioprobe/opus"
	"github.com/speechlab/evaluator/internal/evalerr"
)

const minSampleRateHz = 8000

// AudioRef is an opaque handle to an audio resource plus the metadata the
// rest of the pipeline needs. Created once per request by Probe and
// immutable thereafter (spec.md §3).
type AudioRef struct {
	Path       string
	SampleRate int
	Channels   int
	DurationS  float64

	// PCM holds mono float32 samples in [-1, 1] at SampleRate, downmixed
	// from Channels if needed. Feature extraction (C4) and the local
	// whisper.cpp adapter (C2) both read from here.
	PCM []float32
}

// Probe inspects path and returns an AudioRef, or an evalerr.InputError
// describing why it could not. The pipeline orchestrator returns that error
// for the request; it does not continue with duration_s = 0.
func Probe(path string) (*AudioRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, evalerr.NewInputError("failed to open audio file", err)
	}
	defer f.Close()

	if ref, err := probeWAV(f, path); err == nil {
		return ref, nil
	} else {
		slog.Debug("audioprobe: WAV header probe failed, falling back", slog.String("path", path), slog.String("err", err.Error()))
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, evalerr.NewInputError("failed to rewind audio file", err)
	}

	if ref, err := probeOggOpus(f, path); err == nil {
		return ref, nil
	} else {
		slog.Debug("audioprobe: Ogg/Opus probe failed", slog.String("path", path), slog.String("err", err.Error()))
		return nil, evalerr.NewInputError(fmt.Sprintf("unrecognized audio format for %q", filepath.Base(path)), err)
	}
}

func probeWAV(f *os.File, path string) (*AudioRef, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}

	sampleRate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	if sampleRate < minSampleRateHz {
		return nil, fmt.Errorf("sample rate %d Hz below the %d Hz minimum", sampleRate, minSampleRateHz)
	}
	if channels < 1 {
		channels = 1
	}

	pcm := downmixToMonoFloat32(buf.AsFloat32Buffer().Data, channels)
	duration := 0.0
	if sampleRate > 0 {
		duration = float64(len(pcm)) / float64(sampleRate)
	}

	return &AudioRef{
		Path:       path,
		SampleRate: sampleRate,
		Channels:   channels,
		DurationS:  duration,
		PCM:        pcm,
	}, nil
}

func probeOggOpus(f *os.File, path string) (*AudioRef, error) {
	if !strings.EqualFold(filepath.Ext(path), ".opus") && !strings.EqualFold(filepath.Ext(path), ".ogg") {
		return nil, fmt.Errorf("not an Ogg container by extension")
	}

	reader, hdr, err := ogg.NewReaderWith(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read Ogg headers: %w", err)
	}

	sampleRate := int(hdr.SampleRate)
	if sampleRate == 0 {
		sampleRate = 48000
	}
	channels := int(hdr.Channels)
	if channels < 1 {
		channels = 1
	}

	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	defer dec.Destroy()

	frameSamples := make([]float32, (sampleRate/1000)*20*channels)
	var pcm []float32

	for {
		data, pageHdr, err := reader.ParseNextPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse Ogg page: %w", err)
		}
		if pageHdr.GranulePosition == 0 || len(data) == 0 {
			continue
		}
		n, err := dec.Decode(data, frameSamples)
		if err != nil {
			// A single corrupt packet doesn't invalidate the whole probe;
			// skip it and keep counting frames.
			continue
		}
		pcm = append(pcm, frameSamples[:n*channels]...)
	}

	mono := downmixToMonoFloat32(pcm, channels)
	duration := 0.0
	if sampleRate > 0 {
		duration = float64(len(mono)) / float64(sampleRate)
	}

	return &AudioRef{
		Path:       path,
		SampleRate: sampleRate,
		Channels:   channels,
		DurationS:  duration,
		PCM:        mono,
	}, nil
}

func downmixToMonoFloat32(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

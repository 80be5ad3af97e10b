// Package azureasr adapts Azure Cognitive Services Speech to the
// asr.Transcriber contract (spec.md §4.2, component C2, engine "azure").
//
// Grounded in the teacher's
// cmd/transcriber/apis/azure/speech_recognizer.go: same SDK
// (github.com/Microsoft/cognitive-services-speech-sdk-go), same
// push-stream + continuous-recognition shape, same session/canceled event
// wiring and end-of-stream signaling. The teacher only consumed
// event.Result.Text/Offset/Duration because live captions only need
// segment-level text; this repo also requests the detailed JSON result
// (common.SpeechServiceResponseJsonResult) to recover the per-word offsets
// spec.md §4.2 requires, parsing the SDK's own NBest/Words payload.
package azureasr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/speechlab/evaluator/internal/asr"
	"github.com/speechlab/evaluator/internal/evalerr"
)

const (
	sampleRate = 16000
	bitDepth   = 16
	channels   = 1
)

// Config mirrors the teacher's SpeechRecognizerConfig.
type Config struct {
	SpeechKey    string
	SpeechRegion string
	Language     string
	DataDir      string
}

func (c Config) IsValid() error {
	if c.SpeechKey == "" {
		return fmt.Errorf("invalid SpeechKey: should not be empty")
	}
	if c.SpeechRegion == "" {
		return fmt.Errorf("invalid SpeechRegion: should not be empty")
	}
	return nil
}

// Transcriber wraps a reusable Azure speech config; each Transcribe call
// spins up its own recognizer session, matching the teacher's rationale
// (the Go SDK's push stream can't be reliably reused across calls).
type Transcriber struct {
	cfg          Config
	speechConfig *speech.SpeechConfig
}

func New(cfg Config) (*Transcriber, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, evalerr.NewConfigError("azureasr", err)
	}

	speechConfig, err := speech.NewSpeechConfigFromSubscription(cfg.SpeechKey, cfg.SpeechRegion)
	if err != nil {
		return nil, evalerr.NewConfigError("azureasr", fmt.Errorf("failed to create speech config: %w", err))
	}
	if cfg.Language != "" {
		if err := speechConfig.SetSpeechRecognitionLanguage(cfg.Language); err != nil {
			return nil, evalerr.NewConfigError("azureasr", fmt.Errorf("failed to set language: %w", err))
		}
	}
	if err := speechConfig.SetProperty(common.SpeechServiceResponseRequestWordLevelTimestamps, "true"); err != nil {
		return nil, evalerr.NewConfigError("azureasr", fmt.Errorf("failed to request word timestamps: %w", err))
	}
	if err := speechConfig.SetProperty(common.SpeechServiceResponseOutputFormatOption, "detailed"); err != nil {
		return nil, evalerr.NewConfigError("azureasr", fmt.Errorf("failed to request detailed output: %w", err))
	}
	if cfg.DataDir != "" {
		if err := speechConfig.SetProperty(common.SpeechLogFilename, filepath.Join(cfg.DataDir, "azure.log")); err != nil {
			return nil, evalerr.NewConfigError("azureasr", fmt.Errorf("failed to set log property: %w", err))
		}
	}

	return &Transcriber{cfg: cfg, speechConfig: speechConfig}, nil
}

// detailedWord is one entry of the SDK's NBest[0].Words array in the
// detailed JSON result.
type detailedWord struct {
	Word       string  `json:"Word"`
	Offset     int64   `json:"Offset"`   // 100-nanosecond ticks
	Duration   int64   `json:"Duration"` // 100-nanosecond ticks
	Confidence float64 `json:"Confidence"`
}

type detailedResult struct {
	NBest []struct {
		Words []detailedWord `json:"Words"`
	} `json:"NBest"`
}

func ticksToSeconds(ticks int64) float64 { return float64(ticks) / 1e7 }

func (t *Transcriber) Transcribe(ctx context.Context, pcm []float32, rate int) (*asr.TranscriptionResult, error) {
	inputDuration := time.Duration(float64(len(pcm))/float64(max(rate, 1))) * time.Second

	audioStream, err := audio.CreatePushAudioInputStream()
	if err != nil {
		return nil, evalerr.NewTranscriptionError("azureasr", fmt.Errorf("failed to create audio stream: %w", err))
	}
	audioConfig, err := audio.NewAudioConfigFromStreamInput(audioStream)
	if err != nil {
		return nil, evalerr.NewTranscriptionError("azureasr", fmt.Errorf("failed to create audio config: %w", err))
	}
	recognizer, err := speech.NewSpeechRecognizerFromConfig(t.speechConfig, audioConfig)
	if err != nil {
		return nil, evalerr.NewTranscriptionError("azureasr", fmt.Errorf("failed to create speech recognizer: %w", err))
	}
	defer func() {
		audioStream.CloseStream()
		audioConfig.Close()
		recognizer.Close()
	}()

	segmentsCh := make(chan asr.Segment, 8)
	errCh := make(chan error, 1)
	eosCh := make(chan struct{})

	recognizer.Recognized(func(event speech.SpeechRecognitionEventArgs) {
		defer event.Close()

		if event.Result.Reason == common.NoMatch || len(event.Result.Text) == 0 {
			return
		}

		segStart := event.Result.Offset.Seconds()
		segEnd := segStart + event.Result.Duration.Seconds()

		raw, err := event.Result.Properties.GetProperty(common.SpeechServiceResponseJsonResult, "")
		if err != nil || raw == "" {
			slog.Warn("azureasr: missing detailed result, falling back to segment text")
			segmentsCh <- asr.Segment{
				Words: []asr.WordToken{{
					Text:   event.Result.Text,
					StartS: segStart,
					EndS:   segEnd,
				}},
				Text:   event.Result.Text,
				StartS: segStart,
				EndS:   segEnd,
			}
			return
		}

		var detailed detailedResult
		if err := json.Unmarshal([]byte(raw), &detailed); err != nil || len(detailed.NBest) == 0 {
			slog.Warn("azureasr: failed to parse detailed result", slog.String("err", fmt.Sprint(err)))
			return
		}

		// event.Result.Text is Azure's punctuated display-form rendering of
		// this same recognition result; the per-word entries in
		// detailed.NBest[0].Words never carry sentence-ending punctuation,
		// so Text is the only punctuated signal recoverable here.
		seg := asr.Segment{Text: event.Result.Text, StartS: segStart, EndS: segEnd}
		for _, w := range detailed.NBest[0].Words {
			seg.Words = append(seg.Words, asr.WordToken{
				Text:       w.Word,
				StartS:     ticksToSeconds(w.Offset),
				EndS:       ticksToSeconds(w.Offset + w.Duration),
				Confidence: w.Confidence,
			})
		}
		if len(seg.Words) > 0 {
			segmentsCh <- seg
		}
	})

	recognizer.Canceled(func(event speech.SpeechRecognitionCanceledEventArgs) {
		defer event.Close()
		if event.Reason == common.EndOfStream {
			close(eosCh)
		} else if event.Reason == common.Error {
			errCh <- fmt.Errorf("%s", event.ErrorDetails)
		}
	})

	if err := <-recognizer.StartContinuousRecognitionAsync(); err != nil {
		return nil, evalerr.NewTranscriptionError("azureasr", fmt.Errorf("failed to start recognizer: %w", err))
	}
	defer func() {
		if err := <-recognizer.StopContinuousRecognitionAsync(); err != nil {
			slog.Error("azureasr: failed to stop recognizer", slog.String("err", err.Error()))
		}
	}()

	if err := audioStream.Write(pcmToWAV(pcm, rate)); err != nil {
		return nil, evalerr.NewTranscriptionError("azureasr", fmt.Errorf("failed to write audio data: %w", err))
	}
	audioStream.CloseStream()

	timeout := max(inputDuration*2, 10*time.Second)
	timeoutCh := time.After(timeout)

	result := &asr.TranscriptionResult{}
	for {
		select {
		case <-ctx.Done():
			return nil, evalerr.NewTranscriptionError("azureasr", ctx.Err())
		case seg := <-segmentsCh:
			result.Segments = append(result.Segments, seg)
		case <-timeoutCh:
			return nil, evalerr.NewTranscriptionError("azureasr", fmt.Errorf("timed out waiting for transcription"))
		case err := <-errCh:
			return nil, evalerr.NewTranscriptionError("azureasr", err)
		case <-eosCh:
			result.Normalize()
			return result, nil
		}
	}
}

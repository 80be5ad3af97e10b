// Package whispercpp adapts a local whisper.cpp model to the asr.Transcriber
// contract (spec.md §4.2, component C2, engine "whisper.cpp").
//
// Grounded in the teacher's cmd/transcriber/apis/whisper.cpp/context.go cgo
// binding. The teacher only read segment-level timestamps
// (whisper_full_get_segment_t0/t1) because live-call transcripts are
// segment-granular; this repo needs word-level timing for pause
// classification and speaking-rate analyzers (spec.md §4.3, §4.9), so the
// adapter additionally walks each segment's tokens with
// whisper_full_get_token_data, which whisper.cpp already populates with
// per-token t0/t1 when params.token_timestamps is enabled.
package whispercpp

// #cgo LDFLAGS: -l:libwhisper.a -lm -lstdc++
// #include <whisper.h>
// #include <stdlib.h>
import "C"

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"unsafe"

	"github.com/speechlab/evaluator/internal/asr"
	"github.com/speechlab/evaluator/internal/evalerr"
)

// Config mirrors the teacher's whisper.Config, adding nothing: model path
// and thread count are the only knobs whisper.cpp needs for a batch
// transcription.
type Config struct {
	ModelFile  string
	NumThreads int
}

func (c Config) IsValid() error {
	if c.ModelFile == "" {
		return fmt.Errorf("invalid ModelFile: should not be empty")
	}
	if numCPU := runtime.NumCPU(); c.NumThreads < 0 || c.NumThreads > numCPU {
		return fmt.Errorf("invalid NumThreads: should be in the range [0, %d]", numCPU)
	}
	if _, err := os.Stat(c.ModelFile); err != nil {
		return fmt.Errorf("invalid ModelFile: failed to stat model file: %w", err)
	}
	return nil
}

// Transcriber wraps a whisper.cpp model context. Not safe for concurrent
// Transcribe calls; the registry (internal/analyzer) never calls into ASR
// concurrently with itself, so one Transcriber per pipeline run suffices.
type Transcriber struct {
	cfg Config
	ctx *C.struct_whisper_context
}

func New(cfg Config) (*Transcriber, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, evalerr.NewConfigError("whispercpp", err)
	}

	path := C.CString(cfg.ModelFile)
	defer C.free(unsafe.Pointer(path))

	ctx := C.whisper_init_from_file(path)
	if ctx == nil {
		return nil, evalerr.NewConfigError("whispercpp.ModelFile", fmt.Errorf("failed to load model file %q", cfg.ModelFile))
	}

	if cfg.NumThreads == 0 {
		cfg.NumThreads = max(1, runtime.NumCPU()/2)
	}

	return &Transcriber{cfg: cfg, ctx: ctx}, nil
}

func (t *Transcriber) Destroy() error {
	if t.ctx == nil {
		return fmt.Errorf("context is not initialized")
	}
	C.whisper_free(t.ctx)
	t.ctx = nil
	return nil
}

// Transcribe runs a single-pass decode over pcm (expected at 16kHz mono,
// matching whisper.cpp's training data) and returns one asr.Segment per
// whisper.cpp segment, each populated with per-token word timings.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []float32, sampleRate int) (*asr.TranscriptionResult, error) {
	if t.ctx == nil {
		return nil, evalerr.NewTranscriptionError("whispercpp", fmt.Errorf("context is not initialized"))
	}
	if len(pcm) == 0 {
		return nil, evalerr.NewTranscriptionError("whispercpp", fmt.Errorf("samples should not be empty"))
	}
	if err := ctx.Err(); err != nil {
		return nil, evalerr.NewTranscriptionError("whispercpp", err)
	}

	params := C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)
	params.no_context = C.bool(false)
	params.n_threads = C.int(t.cfg.NumThreads)
	params.token_timestamps = C.bool(true)
	params.split_on_word = C.bool(true)

	ret := C.whisper_full(t.ctx, params, (*C.float)(&pcm[0]), C.int(len(pcm)))
	if ret != 0 {
		return nil, evalerr.NewTranscriptionError("whispercpp", fmt.Errorf("whisper_full failed with code %d", ret))
	}

	n := int(C.whisper_full_n_segments(t.ctx))
	result := &asr.TranscriptionResult{Segments: make([]asr.Segment, 0, n)}

	for i := 0; i < n; i++ {
		nTokens := int(C.whisper_full_n_tokens(t.ctx, C.int(i)))
		// whisper_full_get_segment_text is whisper.cpp's own punctuated
		// rendering of the segment, grounded in the teacher's
		// apis/whisper.cpp/context.go; the per-token text walked below
		// never reconstructs sentence-ending punctuation on its own.
		seg := asr.Segment{
			Text:   strings.TrimSpace(C.GoString(C.whisper_full_get_segment_text(t.ctx, C.int(i)))),
			StartS: float64(C.whisper_full_get_segment_t0(t.ctx, C.int(i))) / 100.0,
			EndS:   float64(C.whisper_full_get_segment_t1(t.ctx, C.int(i))) / 100.0,
		}

		for j := 0; j < nTokens; j++ {
			text := C.GoString(C.whisper_full_get_token_text(t.ctx, C.int(i), C.int(j)))
			text = strings.TrimSpace(text)
			if text == "" || strings.HasPrefix(text, "[_") {
				continue
			}

			tokenData := C.whisper_full_get_token_data(t.ctx, C.int(i), C.int(j))
			seg.Words = append(seg.Words, asr.WordToken{
				Text:       text,
				StartS:     float64(tokenData.t0) / 100.0,
				EndS:       float64(tokenData.t1) / 100.0,
				Confidence: float64(tokenData.p),
			})
		}

		if len(seg.Words) > 0 {
			result.Segments = append(result.Segments, seg)
		}
	}

	result.Normalize()
	return result, nil
}

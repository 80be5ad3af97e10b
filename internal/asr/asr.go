// Package asr defines the Transcriber Adapter contract (spec.md §4.2,
// component C2): a pluggable speech-to-text boundary that produces a
// TranscriptionResult with word-level timestamps from an AudioRef.
//
// The interface shape is grounded in the teacher's own ASR boundary
// (cmd/transcriber/apis/azure/speech_recognizer.go and
// cmd/transcriber/whisper/whisper.go exposed two different engines behind
// similar call/callback shapes); here both engines implement the same
// Transcriber interface so the pipeline can pick one at config time,
// mirroring the teacher's config-driven choice of live-caption engine.
package asr

import (
	"context"
	"sort"
)

// WordToken is a single recognized word with its timing, grounded in the
// teacher's azure adapter requesting
// common.SpeechServiceResponseRequestWordLevelTimestamps and whisper.cpp's
// per-token timestamps (whisper_full_get_token_data).
type WordToken struct {
	Text       string
	StartS     float64
	EndS       float64
	Confidence float64
}

// Segment groups words produced as one recognition unit (one Azure
// utterance, one whisper.cpp segment). Segment boundaries are what the
// pause classifier (internal/transcript) uses to distinguish
// intra-segment from inter-segment pauses (spec.md §4.3).
//
// StartS/EndS bracket the segment. Text is the engine's own punctuated,
// display-form rendering of the segment (Azure's NBest display text,
// whisper.cpp's whisper_full_get_segment_text) — not a concatenation of
// Words, since neither engine's per-word text carries sentence-ending
// punctuation. Text is the only punctuated signal anywhere in this
// pipeline and is what internal/transcript uses to recover sentence
// boundaries; when it is empty, callers must fall back to the
// (unpunctuated) Words. The Azure adapter drops a segment whose detailed
// result can't be parsed rather than returning it with empty Text.
type Segment struct {
	Words  []WordToken
	Text   string
	StartS float64
	EndS   float64
}

// TranscriptionResult is the canonical ASR output (spec.md §3): a
// chronological list of recognition segments, each carrying its own
// word-level timestamps and punctuated display text.
type TranscriptionResult struct {
	Segments []Segment
}

// Transcriber is implemented by each ASR engine adapter.
type Transcriber interface {
	// Transcribe runs recognition over mono PCM samples at sampleRate and
	// returns word-level segments in chronological order.
	Transcribe(ctx context.Context, pcm []float32, sampleRate int) (*TranscriptionResult, error)
}

// Normalize repairs ASR timestamp drift so downstream consumers can assume
// words are monotonic and non-overlapping: both engines have been observed
// to emit a word whose start precedes the previous word's end by a few
// milliseconds, particularly across segment boundaries. Per spec.md §4.2,
// any such word's start is clamped to the previous word's end.
func (r *TranscriptionResult) Normalize() {
	var prevEnd float64
	first := true
	for si := range r.Segments {
		words := r.Segments[si].Words
		for wi := range words {
			if !first && words[wi].StartS < prevEnd {
				words[wi].StartS = prevEnd
				if words[wi].EndS < words[wi].StartS {
					words[wi].EndS = words[wi].StartS
				}
			}
			prevEnd = words[wi].EndS
			first = false
		}
	}
}

// AllWords flattens every segment's words into one chronological slice.
func (r *TranscriptionResult) AllWords() []WordToken {
	var out []WordToken
	for _, seg := range r.Segments {
		out = append(out, seg.Words...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartS < out[j].StartS })
	return out
}

// DurationS returns the end time of the last word, or 0 if there are none.
func (r *TranscriptionResult) DurationS() float64 {
	words := r.AllWords()
	if len(words) == 0 {
		return 0
	}
	return words[len(words)-1].EndS
}

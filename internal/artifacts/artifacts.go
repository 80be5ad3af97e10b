// Package artifacts defines the request-scoped, read-only bundle every
// analyzer consumes (spec.md §3, "Artifacts"): audio metadata, the
// transcription, the pause-annotated transcript, a lazy acoustic feature
// loader, reference tables, and the original request metadata. Built once
// per request by the pipeline orchestrator and shared by reference across
// all analyzers; no analyzer may mutate it.
package artifacts

import (
	"github.com/speechlab/evaluator/internal/asr"
	"github.com/speechlab/evaluator/internal/audioprobe"
	"github.com/speechlab/evaluator/internal/domain"
	"github.com/speechlab/evaluator/internal/features"
	"github.com/speechlab/evaluator/internal/refdata"
	"github.com/speechlab/evaluator/internal/transcript"
)

// RequestMetadata carries the optional fields from an EvaluationRequest
// that analyzers need but that aren't derived from audio or transcript
// (spec.md §6, "Request envelope").
type RequestMetadata struct {
	Topic            string
	SpeechType       string
	ExpectedDuration string
	GenderHint       string // "male", "female", or "auto"
	Domain           string
	DomainProfile    *domain.Profile
}

// Artifacts is the shared bundle handed to every analyzer (spec.md §3).
type Artifacts struct {
	AudioRef            *audioprobe.AudioRef
	Transcription       *asr.TranscriptionResult
	AnnotatedTranscript *transcript.AnnotatedTranscript
	FeaturesLoader      *features.Extractor
	ReferenceData       *refdata.Tables
	RequestMetadata     RequestMetadata
}

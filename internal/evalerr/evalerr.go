// Package evalerr defines the typed error kinds used across the pipeline
// (spec.md §7). Every component wraps underlying failures with fmt.Errorf
// and %w, the same discipline the teacher repo uses throughout
// (cmd/transcriber/call, cmd/transcriber/config); the types here only add
// enough structure for the orchestrator to decide whether a failure is
// whole-request-fatal (InputError, TranscriptionError) or localized
// (FeatureError, AnalyzerError, ConfigError at load time only).
package evalerr

import "fmt"

// InputError signals malformed audio, unreadable metadata, or an invalid
// expected-duration string. The orchestrator must not run the pipeline.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input error: %s: %s", e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("input error: %s", e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

func NewInputError(reason string, err error) *InputError {
	return &InputError{Reason: reason, Err: err}
}

// TranscriptionError signals the ASR adapter failed outright. The pipeline
// cannot continue without a transcript.
type TranscriptionError struct {
	Reason string
	Err    error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription error: %s: %s", e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("transcription error: %s", e.Reason)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

func NewTranscriptionError(reason string, err error) *TranscriptionError {
	return &TranscriptionError{Reason: reason, Err: err}
}

// FeatureError signals a specific acoustic feature could not be computed.
// It is always localized: analyzers depending on that feature degrade,
// everything else proceeds.
type FeatureError struct {
	Feature string
	Err     error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("feature error: %s: %s", e.Feature, e.Err.Error())
}

func (e *FeatureError) Unwrap() error { return e.Err }

func NewFeatureError(feature string, err error) *FeatureError {
	return &FeatureError{Feature: feature, Err: err}
}

// AnalyzerError signals an analyzer crashed or timed out. Localized: that
// analyzer's result becomes `failed`, and the aggregator redistributes its
// weight.
type AnalyzerError struct {
	AnalyzerID string
	Err        error
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("analyzer error: %s: %s", e.AnalyzerID, e.Err.Error())
}

func (e *AnalyzerError) Unwrap() error { return e.Err }

func NewAnalyzerError(id string, err error) *AnalyzerError {
	return &AnalyzerError{AnalyzerID: id, Err: err}
}

// ConfigError signals invalid configuration at load time. Fatal at
// startup, never at request time.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Err.Error())
}

func (e *ConfigError) Unwrap() error { return e.Err }

func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// Package pipeline implements the single-request orchestrator (spec.md §5,
// §6): builds the shared Artifacts bundle (C1-C4), runs the Analyzer
// Registry (C5/C6-C12), hands the results to the Aggregator (C13), and
// returns the EvaluationReport response envelope.
//
// Grounded in the teacher's own top-level orchestration shape
// (cmd/transcriber/call/transcriber.go's Transcriber.Start: probe/load,
// invoke the engine, then process and report), generalized from one
// long-lived call transcription session to one batch evaluation request.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/speechlab/evaluator/internal/aggregate"
	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/analyzer/content"
	"github.com/speechlab/evaluator/internal/analyzer/disfluency"
	"github.com/speechlab/evaluator/internal/analyzer/effectiveness"
	"github.com/speechlab/evaluator/internal/analyzer/pronunciation"
	"github.com/speechlab/evaluator/internal/analyzer/prosody"
	"github.com/speechlab/evaluator/internal/analyzer/structure"
	"github.com/speechlab/evaluator/internal/analyzer/timing"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/asr"
	"github.com/speechlab/evaluator/internal/audioprobe"
	"github.com/speechlab/evaluator/internal/config"
	"github.com/speechlab/evaluator/internal/domain"
	"github.com/speechlab/evaluator/internal/evalerr"
	"github.com/speechlab/evaluator/internal/features"
	"github.com/speechlab/evaluator/internal/obsmetrics"
	"github.com/speechlab/evaluator/internal/refdata"
	"github.com/speechlab/evaluator/internal/transcript"
)

// Request is the EvaluationRequest envelope (spec.md §6, bit-exact field
// names, minus the audio bytes themselves which the caller has already
// saved to AudioPath).
type Request struct {
	// RequestID correlates this request across logs and metrics. Left
	// empty, Run generates one so every request is traceable even when the
	// caller doesn't supply its own.
	RequestID        string
	AudioPath        string
	Topic            string
	SpeechType       string
	ExpectedDuration string
	ActualDuration   string
	GenderHint       string
	Domain           string
}

// TranscriptSummary is the "transcript" sub-object of the response
// envelope (spec.md §6).
type TranscriptSummary struct {
	Text         string  `json:"text"`
	Annotated    string  `json:"annotated"`
	PauseCount   int     `json:"pause_count"`
	SpeakingRate float64 `json:"speaking_rate"`
}

// Response is the EvaluationReport response envelope (spec.md §6).
type Response struct {
	RequestID       string            `json:"request_id"`
	FinalScore      int               `json:"final_score"`
	Rating          string            `json:"rating"`
	ComponentScores map[string]int    `json:"component_scores"`
	Analyzers       []analyzer.Result `json:"analyzers"`
	Suggestions     []string          `json:"suggestions"`
	Transcript      TranscriptSummary `json:"transcript"`
}

// Orchestrator wires together reference data, the ASR engine, the
// acoustic feature extractor, the Analyzer Registry and the Aggregator
// into one Run call per request.
type Orchestrator struct {
	cfg         config.Config
	transcriber asr.Transcriber
	refdata     *refdata.Tables
	domains     *domain.Registry
	metrics     *obsmetrics.Collector
}

// New builds an Orchestrator. transcriber is the configured ASR engine
// adapter (azureasr.Transcriber or whispercpp.Transcriber); ref may be nil
// if no reference-data directory was configured, in which case analyzers
// that need it degrade rather than fail (spec.md §7). metrics may be nil
// to disable metric recording.
func New(cfg config.Config, transcriber asr.Transcriber, ref *refdata.Tables, domains *domain.Registry, metrics *obsmetrics.Collector) *Orchestrator {
	return &Orchestrator{cfg: cfg, transcriber: transcriber, refdata: ref, domains: domains, metrics: metrics}
}

// buildRegistry constructs the C6-C12 analyzer set from configuration.
func (o *Orchestrator) buildRegistry() *analyzer.Registry {
	analyzers := []analyzer.Analyzer{
		structure.New(),
		content.New(),
		disfluency.New(nil),
		timing.New(),
		prosody.New(o.cfg.GenderTieBreakThreshold),
		pronunciation.New(),
		effectiveness.New(),
	}
	timeout := time.Duration(o.cfg.AnalyzerTimeoutMs) * time.Millisecond
	return analyzer.NewRegistry(analyzers, o.cfg.WorkerCount, timeout)
}

// Run executes one evaluation request end to end (spec.md §2's control
// flow: C1-C4 build Artifacts, C5 runs C6-C12, C13 aggregates).
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := slog.With(slog.String("request_id", requestID))
	logger.Info("evaluation request started", slog.String("audio_path", req.AudioPath))

	audioRef, err := audioprobe.Probe(req.AudioPath)
	if err != nil {
		logger.Error("audio probe failed", slog.String("err", err.Error()))
		o.recordRequest("input_error", start, 0, false)
		return nil, err
	}

	transcription, err := o.transcriber.Transcribe(ctx, audioRef.PCM, audioRef.SampleRate)
	if err != nil {
		logger.Error("transcription failed", slog.String("err", err.Error()))
		o.recordRequest("transcription_error", start, 0, false)
		return nil, evalerr.NewTranscriptionError("transcribe", err)
	}
	transcription.Normalize()

	duration := audioRef.DurationS
	if req.ActualDuration != "" {
		if parsed, perr := parseMMSS(req.ActualDuration); perr == nil {
			duration = parsed
		}
	}

	annotated := transcript.Build(transcription, duration)

	fe := features.New(audioRef.PCM, audioRef.SampleRate)

	domainName := req.Domain
	if domainName == "" {
		domainName = "general"
	}
	var profile *domain.Profile
	if o.domains != nil {
		profile = o.domains.Lookup(domainName)
	}

	art := &artifacts.Artifacts{
		AudioRef:            audioRef,
		Transcription:       transcription,
		AnnotatedTranscript: annotated,
		FeaturesLoader:      fe,
		ReferenceData:       o.refdata,
		RequestMetadata: artifacts.RequestMetadata{
			Topic:            req.Topic,
			SpeechType:       req.SpeechType,
			ExpectedDuration: req.ExpectedDuration,
			GenderHint:       normalizeGenderHint(req.GenderHint, o.cfg.GenderHintDefault),
			Domain:           domainName,
			DomainProfile:    profile,
		},
	}

	registry := o.buildRegistry()
	results := registry.Run(ctx, art)
	o.recordAnalyzers(results)

	report := aggregate.Aggregate(results, o.cfg.Weights, annotated)

	resp := &Response{
		RequestID:       requestID,
		FinalScore:      int(report.FinalScore + 0.5),
		Rating:          string(report.Rating),
		ComponentScores: componentScores(report),
		Analyzers:       results,
		Suggestions:     report.Suggestions,
		Transcript: TranscriptSummary{
			Text:         plainText(annotated),
			Annotated:    transcript.Serialize(annotated),
			PauseCount:   annotated.PauseCount,
			SpeakingRate: annotated.SpeakingRate,
		},
	}

	logger.Info("evaluation request completed",
		slog.Int("final_score", resp.FinalScore), slog.String("rating", resp.Rating))
	o.recordRequest("ok", start, report.FinalScore, true)
	return resp, nil
}

// plainText renders the word tokens only, dropping pause markers, as the
// response envelope's "text" field (spec.md §6); "annotated" keeps the
// pause markers via transcript.Serialize.
func plainText(t *transcript.AnnotatedTranscript) string {
	var b []byte
	for _, tok := range t.Tokens {
		if tok.Kind != transcript.TokenWord {
			continue
		}
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, tok.Text...)
	}
	return string(b)
}

func componentScores(report aggregate.Report) map[string]int {
	out := make(map[string]int, len(report.SubScores))
	for _, s := range report.SubScores {
		out[s.AnalyzerID] = int(s.Score + 0.5)
	}
	return out
}

func (o *Orchestrator) recordAnalyzers(results []analyzer.Result) {
	if o.metrics == nil {
		return
	}
	for _, r := range results {
		o.metrics.RecordAnalyzer(r.ID, string(r.Status), time.Duration(r.DurationMs)*time.Millisecond)
	}
}

func (o *Orchestrator) recordRequest(status string, start time.Time, finalScore float64, ok bool) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordRequest(status, time.Since(start), finalScore, ok)
}

func normalizeGenderHint(hint, fallback string) string {
	switch hint {
	case "male", "female":
		return hint
	case "":
		if fallback == "male" || fallback == "female" {
			return fallback
		}
		return "auto"
	default:
		return "auto"
	}
}

// parseMMSS parses an "MM:SS" actual_duration override (spec.md §6) into
// seconds.
func parseMMSS(s string) (float64, error) {
	var m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d", &m, &sec); err != nil {
		return 0, evalerr.NewInputError("actual_duration", err)
	}
	return float64(m*60 + sec), nil
}

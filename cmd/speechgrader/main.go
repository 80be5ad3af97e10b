// Command speechgrader evaluates one recorded speech against the
// speech-evaluation pipeline (spec.md) and prints the resulting
// EvaluationReport as JSON. It is a batch CLI rather than the teacher's
// long-lived call session, so it runs one request to completion and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/speechlab/evaluator/internal/asr"
	"github.com/speechlab/evaluator/internal/asr/azureasr"
	"github.com/speechlab/evaluator/internal/asr/whispercpp"
	"github.com/speechlab/evaluator/internal/config"
	"github.com/speechlab/evaluator/internal/domain"
	"github.com/speechlab/evaluator/internal/obsmetrics"
	"github.com/speechlab/evaluator/internal/pipeline"
	"github.com/speechlab/evaluator/internal/refdata"
)

const requestTimeout = 60 * time.Second

func slogReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
	}
	return a
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelInfo,
		ReplaceAttr: slogReplaceAttr,
	}))
	slog.SetDefault(logger)

	audioPath := flag.String("audio", "", "path to the audio file to evaluate")
	topic := flag.String("topic", "", "expected topic of the speech")
	speechType := flag.String("speech-type", "", `speech category, e.g. "Prepared Speech"`)
	expectedDuration := flag.String("expected-duration", "", `expected duration, format "<min>[-<max>] minutes"`)
	actualDuration := flag.String("actual-duration", "", `override actual duration, format "MM:SS"`)
	genderHint := flag.String("gender-hint", "auto", `"male", "female", or "auto"`)
	domainName := flag.String("domain", "general", "registered domain vocabulary profile")
	requestID := flag.String("request-id", "", "correlate this run across logs and metrics; generated if empty")
	flag.Parse()

	if *audioPath == "" {
		slog.Error("missing required -audio flag")
		os.Exit(1)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load config", slog.String("err", err.Error()))
		os.Exit(1)
	}
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		slog.Error("invalid config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	transcriber, err := newTranscriber(cfg)
	if err != nil {
		slog.Error("failed to create transcriber", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var ref *refdata.Tables
	if cfg.ReferenceDataDir != "" {
		ref, err = refdata.Load(cfg.ReferenceDataDir)
		if err != nil {
			slog.Error("failed to load reference data",
				slog.String("dir", cfg.ReferenceDataDir), slog.String("err", err.Error()))
			os.Exit(1)
		}
	}

	profiles := domain.DefaultProfiles()
	registry := domain.NewRegistry(profiles)

	metrics := obsmetrics.NewCollector("speechgrader")

	orch := pipeline.New(cfg, transcriber, ref, registry, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := orch.Run(ctx, pipeline.Request{
		RequestID:        *requestID,
		AudioPath:        *audioPath,
		Topic:            *topic,
		SpeechType:       *speechType,
		ExpectedDuration: *expectedDuration,
		ActualDuration:   *actualDuration,
		GenderHint:       *genderHint,
		Domain:           *domainName,
	})
	if err != nil {
		slog.Error("evaluation failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		slog.Error("failed to encode report", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func newTranscriber(cfg config.Config) (asr.Transcriber, error) {
	switch cfg.TranscribeAPI {
	case config.TranscribeAPIAzure:
		return azureasr.New(azureasr.Config{
			SpeechKey:    cfg.AzureSpeechKey,
			SpeechRegion: cfg.AzureSpeechRegion,
			Language:     cfg.AzureLanguage,
			DataDir:      cfg.DataDir,
		})
	default:
		numThreads := cfg.NumThreads
		if numThreads <= 0 {
			numThreads = runtime.NumCPU()
		}
		return whispercpp.New(whispercpp.Config{
			ModelFile:  cfg.WhisperModelFile,
			NumThreads: numThreads,
		})
	}
}

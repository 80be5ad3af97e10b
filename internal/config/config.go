// Package config defines the evaluation pipeline's configuration (spec.md
// §6), following the same FromEnv/SetDefaults/IsValid/ToEnv/ToMap/FromMap
// contract as the teacher's cmd/transcriber/config package. The fields
// themselves are new: engine selection, worker pool sizing, per-analyzer
// timeouts, scoring weights and reference-data locations rather than the
// teacher's call/site/post identifiers.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/speechlab/evaluator/internal/evalerr"
)

// TranscribeAPI selects the ASR engine adapter (component C2).
type TranscribeAPI string

const (
	TranscribeAPIWhisperCPP TranscribeAPI = "whisper.cpp"
	TranscribeAPIAzure      TranscribeAPI = "azure"
)

func (a TranscribeAPI) IsValid() bool {
	switch a {
	case TranscribeAPIWhisperCPP, TranscribeAPIAzure:
		return true
	default:
		return false
	}
}

const (
	AnalyzerTimeoutMsDefault = 10000
	MinConfidenceDefault     = 0.0
	GenderHintDefaultDefault = "neutral"
	TranscribeAPIDefault     = TranscribeAPIWhisperCPP
	NumThreadsDefault        = 2
)

// WorkerCountDefault is the analyzer worker-pool size used when none is
// configured: one worker per available CPU core.
var WorkerCountDefault = runtime.NumCPU()

// DefaultWeights mirrors the canonical weight table of spec.md §4.13.
var DefaultWeights = map[string]float64{
	"effectiveness": 0.16,
	"structure":     0.13,
	"content":       0.16,
	"pronunciation": 0.18,
	"prosody":       0.13,
	"disfluency":    0.12,
	"timing":        0.12,
}

// GenderTieBreakThresholdDefault resolves spec.md §9's Open Question on
// auto gender detection: the distillation's original tie-break leaned
// male whenever the pitch estimate sat exactly between the two bands.
// That bias is replaced with an explicit, configurable threshold in
// [0, 1] along the male->female pitch continuum; 0.5 is neutral (no lean
// either way). A value of 0 counts as unset: SetDefaults and prosody.New
// both replace it with 0.5.
const GenderTieBreakThresholdDefault = 0.5

// Config is the root configuration for a pipeline run.
type Config struct {
	// ASR engine selection (C2)
	TranscribeAPI TranscribeAPI
	NumThreads    int

	// azure engine options, only required when TranscribeAPI == azure
	AzureSpeechKey    string
	AzureSpeechRegion string
	AzureLanguage     string

	// whisper.cpp engine options, only required when TranscribeAPI == whisper.cpp
	WhisperModelFile string

	// DataDir holds engine logs (the Azure speech SDK log file).
	DataDir string

	// Registry concurrency (C5)
	WorkerCount       int
	AnalyzerTimeoutMs int

	// Scoring (C13)
	Weights                 map[string]float64
	MinConfidence           float64
	GenderHintDefault       string
	GenderTieBreakThreshold float64
	DomainProfiles          []string
	ReferenceDataDir        string
}

func (c Config) IsValid() error {
	if c.TranscribeAPI == "" {
		return fmt.Errorf("config cannot be empty")
	}

	if !c.TranscribeAPI.IsValid() {
		return fmt.Errorf("TranscribeAPI value is not valid")
	}

	switch c.TranscribeAPI {
	case TranscribeAPIAzure:
		if c.AzureSpeechKey == "" {
			return fmt.Errorf("AzureSpeechKey cannot be empty when TranscribeAPI is azure")
		}
		if c.AzureSpeechRegion == "" {
			return fmt.Errorf("AzureSpeechRegion cannot be empty when TranscribeAPI is azure")
		}
	case TranscribeAPIWhisperCPP:
		if c.WhisperModelFile == "" {
			return fmt.Errorf("WhisperModelFile cannot be empty when TranscribeAPI is whisper.cpp")
		}
	}

	if numCPU := runtime.NumCPU(); c.NumThreads < 1 || c.NumThreads > numCPU {
		return fmt.Errorf("NumThreads should be in the range [1, %d]", numCPU)
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WorkerCount should be >= 1")
	}

	if c.AnalyzerTimeoutMs < 1 {
		return fmt.Errorf("AnalyzerTimeoutMs should be >= 1")
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MinConfidence should be in the range [0, 1]")
	}

	if c.GenderTieBreakThreshold < 0 || c.GenderTieBreakThreshold > 1 {
		return fmt.Errorf("GenderTieBreakThreshold should be in the range [0, 1]")
	}

	sum := 0.0
	for id, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("weight for %q should be >= 0", id)
		}
		sum += w
	}
	if len(c.Weights) > 0 && (sum < 0.999 || sum > 1.001) {
		return fmt.Errorf("weights should sum to 1.0, got %f", sum)
	}

	return nil
}

func (c *Config) SetDefaults() {
	if c.TranscribeAPI == "" {
		c.TranscribeAPI = TranscribeAPIDefault
	}
	if c.NumThreads == 0 {
		c.NumThreads = max(1, min(NumThreadsDefault, runtime.NumCPU()))
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = WorkerCountDefault
	}
	if c.AnalyzerTimeoutMs == 0 {
		c.AnalyzerTimeoutMs = AnalyzerTimeoutMsDefault
	}
	if c.GenderHintDefault == "" {
		c.GenderHintDefault = GenderHintDefaultDefault
	}
	if c.GenderTieBreakThreshold == 0 {
		c.GenderTieBreakThreshold = GenderTieBreakThresholdDefault
	}
	if c.Weights == nil {
		c.Weights = make(map[string]float64, len(DefaultWeights))
		for k, v := range DefaultWeights {
			c.Weights[k] = v
		}
	}
}

func (c Config) ToEnv() []string {
	weightsJSON, _ := json.Marshal(c.Weights)
	profilesJSON, _ := json.Marshal(c.DomainProfiles)

	return []string{
		fmt.Sprintf("TRANSCRIBE_API=%s", c.TranscribeAPI),
		fmt.Sprintf("NUM_THREADS=%d", c.NumThreads),
		fmt.Sprintf("AZURE_SPEECH_KEY=%s", c.AzureSpeechKey),
		fmt.Sprintf("AZURE_SPEECH_REGION=%s", c.AzureSpeechRegion),
		fmt.Sprintf("AZURE_LANGUAGE=%s", c.AzureLanguage),
		fmt.Sprintf("WHISPER_MODEL_FILE=%s", c.WhisperModelFile),
		fmt.Sprintf("DATA_DIR=%s", c.DataDir),
		fmt.Sprintf("WORKER_COUNT=%d", c.WorkerCount),
		fmt.Sprintf("ANALYZER_TIMEOUT_MS=%d", c.AnalyzerTimeoutMs),
		fmt.Sprintf("WEIGHTS=%s", string(weightsJSON)),
		fmt.Sprintf("MIN_CONFIDENCE=%f", c.MinConfidence),
		fmt.Sprintf("GENDER_HINT_DEFAULT=%s", c.GenderHintDefault),
		fmt.Sprintf("GENDER_TIE_BREAK_THRESHOLD=%f", c.GenderTieBreakThreshold),
		fmt.Sprintf("DOMAIN_PROFILES=%s", string(profilesJSON)),
		fmt.Sprintf("REFERENCE_DATA_DIR=%s", c.ReferenceDataDir),
	}
}

func (c Config) ToMap() map[string]any {
	return map[string]any{
		"transcribe_api":             string(c.TranscribeAPI),
		"num_threads":                c.NumThreads,
		"azure_speech_key":           c.AzureSpeechKey,
		"azure_speech_region":        c.AzureSpeechRegion,
		"azure_language":             c.AzureLanguage,
		"whisper_model_file":         c.WhisperModelFile,
		"data_dir":                   c.DataDir,
		"worker_count":               c.WorkerCount,
		"analyzer_timeout_ms":        c.AnalyzerTimeoutMs,
		"weights":                    c.Weights,
		"min_confidence":             c.MinConfidence,
		"gender_hint_default":        c.GenderHintDefault,
		"gender_tie_break_threshold": c.GenderTieBreakThreshold,
		"domain_profiles":            c.DomainProfiles,
		"reference_data_dir":         c.ReferenceDataDir,
	}
}

func (c *Config) FromMap(m map[string]any) *Config {
	if v, ok := m["transcribe_api"].(string); ok {
		c.TranscribeAPI = TranscribeAPI(v)
	}
	c.AzureSpeechKey, _ = m["azure_speech_key"].(string)
	c.AzureSpeechRegion, _ = m["azure_speech_region"].(string)
	c.AzureLanguage, _ = m["azure_language"].(string)
	c.WhisperModelFile, _ = m["whisper_model_file"].(string)
	c.DataDir, _ = m["data_dir"].(string)
	c.GenderHintDefault, _ = m["gender_hint_default"].(string)
	c.ReferenceDataDir, _ = m["reference_data_dir"].(string)

	c.NumThreads = toInt(m["num_threads"])
	c.WorkerCount = toInt(m["worker_count"])
	c.AnalyzerTimeoutMs = toInt(m["analyzer_timeout_ms"])

	if v, ok := m["min_confidence"].(float64); ok {
		c.MinConfidence = v
	}
	if v, ok := m["gender_tie_break_threshold"].(float64); ok {
		c.GenderTieBreakThreshold = v
	}

	switch v := m["weights"].(type) {
	case map[string]float64:
		c.Weights = v
	case map[string]any:
		c.Weights = make(map[string]float64, len(v))
		for k, raw := range v {
			if f, ok := raw.(float64); ok {
				c.Weights[k] = f
			}
		}
	}

	switch v := m["domain_profiles"].(type) {
	case []string:
		c.DomainProfiles = v
	case []any:
		for _, raw := range v {
			if s, ok := raw.(string); ok {
				c.DomainProfiles = append(c.DomainProfiles, s)
			}
		}
	}

	return c
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func FromEnv() (Config, error) {
	var c Config
	c.TranscribeAPI = TranscribeAPI(os.Getenv("TRANSCRIBE_API"))
	c.NumThreads, _ = strconv.Atoi(os.Getenv("NUM_THREADS"))
	c.AzureSpeechKey = os.Getenv("AZURE_SPEECH_KEY")
	c.AzureSpeechRegion = os.Getenv("AZURE_SPEECH_REGION")
	c.AzureLanguage = os.Getenv("AZURE_LANGUAGE")
	c.WhisperModelFile = os.Getenv("WHISPER_MODEL_FILE")
	c.DataDir = os.Getenv("DATA_DIR")
	c.WorkerCount, _ = strconv.Atoi(os.Getenv("WORKER_COUNT"))
	c.AnalyzerTimeoutMs, _ = strconv.Atoi(os.Getenv("ANALYZER_TIMEOUT_MS"))
	c.MinConfidence, _ = strconv.ParseFloat(os.Getenv("MIN_CONFIDENCE"), 64)
	c.GenderHintDefault = os.Getenv("GENDER_HINT_DEFAULT")
	c.GenderTieBreakThreshold, _ = strconv.ParseFloat(os.Getenv("GENDER_TIE_BREAK_THRESHOLD"), 64)
	c.ReferenceDataDir = os.Getenv("REFERENCE_DATA_DIR")

	if val := os.Getenv("WEIGHTS"); val != "" {
		if err := json.Unmarshal([]byte(val), &c.Weights); err != nil {
			return c, evalerr.NewConfigError("WEIGHTS", err)
		}
	}
	if val := os.Getenv("DOMAIN_PROFILES"); val != "" {
		c.DomainProfiles = strings.Split(val, ",")
	}

	return c, nil
}

// FromJSONFile loads a Config from a JSON file, rejecting unknown fields so
// typos in a hand-written request surface as ConfigError rather than being
// silently ignored.
func FromJSONFile(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, evalerr.NewConfigError(path, err)
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return c, evalerr.NewConfigError(path, err)
	}

	return c, nil
}

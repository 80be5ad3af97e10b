// Package refdata loads the process-wide reference tables named in
// spec.md §6: a word-frequency percentile table, stopword sets, a
// pronunciation dictionary, and an optional embedding model. All four
// live under one configurable directory and are loaded exactly once at
// startup, then shared read-only by every pipeline run (spec.md §5,
// "Shared-resource policy").
//
// The binary tables each begin with the 16-byte header spec.md §6
// specifies: an 8-byte magic, a uint32 version, and 4 reserved bytes.
// Grounded in the teacher's own discipline of validating untrusted input
// before use (cmd/transcriber/config validates every field before the
// transcriber starts); here that discipline extends to file-format
// validation, since a corrupt or wrong-version reference file should fail
// fast at startup (ConfigError) rather than produce silently wrong scores.
package refdata

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/speechlab/evaluator/internal/evalerr"
)

const headerLen = 16

var (
	wordFreqMagic = [8]byte{'S', 'G', 'W', 'F', 'R', 'Q', '0', '1'}
	pronDictMagic = [8]byte{'S', 'G', 'P', 'R', 'O', 'N', '0', '1'}
)

const supportedVersion = 1

type header struct {
	Magic   [8]byte
	Version uint32
	_       uint32
}

func readHeader(r *bytes.Reader) (header, error) {
	var h header
	if r.Len() < headerLen {
		return h, fmt.Errorf("file shorter than the %d-byte header", headerLen)
	}
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("failed to read header: %w", err)
	}
	return h, nil
}

// WordFrequencyTable maps a lowercased word to its usage percentile
// (0-100, higher = more common), used by the Content Analyzer's word
// complexity scoring (spec.md §4.7).
type WordFrequencyTable map[string]float64

// Percentile returns the frequency percentile for word, or -1 if unknown.
func (t WordFrequencyTable) Percentile(word string) float64 {
	if p, ok := t[strings.ToLower(word)]; ok {
		return p
	}
	return -1
}

// PronunciationDict maps a lowercased word to its expected phoneme
// categories (vowel, fricative, stop, ...), used by the Pronunciation
// Analyzer (spec.md §4.11).
type PronunciationDict map[string][]string

// Tables bundles every process-wide reference table.
type Tables struct {
	WordFrequencies WordFrequencyTable
	Stopwords       map[string]struct{}
	Pronunciation   PronunciationDict
	// EmbeddingModelPath is set when an embedding model file is present.
	// Only the path is recorded; no package in this module loads the model
	// (C12 scores similarity with internal/embedding's TF-IDF embedder).
	EmbeddingModelPath string
}

// IsStopword reports whether word (case-insensitive) is in the stopword
// set.
func (t *Tables) IsStopword(word string) bool {
	_, ok := t.Stopwords[strings.ToLower(word)]
	return ok
}

// Load reads every reference file under dir. Missing optional files
// (pronunciation dict, embedding model) degrade gracefully to empty
// tables; a malformed or wrong-version file that IS present is a fatal
// ConfigError, since serving stale or corrupt reference data silently
// would be worse than refusing to start.
func Load(dir string) (*Tables, error) {
	t := &Tables{
		Stopwords:     make(map[string]struct{}),
		Pronunciation: make(PronunciationDict),
	}

	if dir == "" {
		return t, nil
	}

	wf, err := loadWordFrequencies(filepath.Join(dir, "word_frequencies.bin"))
	if err != nil {
		return nil, err
	}
	t.WordFrequencies = wf

	stopwordFiles, _ := filepath.Glob(filepath.Join(dir, "stopwords.*.txt"))
	for _, f := range stopwordFiles {
		if err := loadStopwordsInto(f, t.Stopwords); err != nil {
			return nil, err
		}
	}

	pronPath := filepath.Join(dir, "pronunciation_dict.bin")
	if _, err := os.Stat(pronPath); err == nil {
		pd, err := loadPronunciationDict(pronPath)
		if err != nil {
			return nil, err
		}
		t.Pronunciation = pd
	}

	embPath := filepath.Join(dir, "embedding_model.bin")
	if _, err := os.Stat(embPath); err == nil {
		t.EmbeddingModelPath = embPath
	}

	return t, nil
}

func loadWordFrequencies(path string) (WordFrequencyTable, error) {
	if _, err := os.Stat(path); err != nil {
		return WordFrequencyTable{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, evalerr.NewConfigError(path, err)
	}

	r := bytes.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		return nil, evalerr.NewConfigError(path, err)
	}
	if h.Magic != wordFreqMagic {
		return nil, evalerr.NewConfigError(path, fmt.Errorf("unrecognized magic for word frequency table"))
	}
	if h.Version != supportedVersion {
		return nil, evalerr.NewConfigError(path, fmt.Errorf("unsupported word frequency table version %d", h.Version))
	}

	table := make(WordFrequencyTable)
	for r.Len() > 0 {
		var wordLen uint16
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			break
		}
		word := make([]byte, wordLen)
		if _, err := io.ReadFull(r, word); err != nil {
			return nil, evalerr.NewConfigError(path, fmt.Errorf("truncated entry: %w", err))
		}
		var pct float64
		if err := binary.Read(r, binary.LittleEndian, &pct); err != nil {
			return nil, evalerr.NewConfigError(path, fmt.Errorf("truncated percentile: %w", err))
		}
		table[strings.ToLower(string(word))] = pct
	}

	return table, nil
}

func loadPronunciationDict(path string) (PronunciationDict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, evalerr.NewConfigError(path, err)
	}

	r := bytes.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		return nil, evalerr.NewConfigError(path, err)
	}
	if h.Magic != pronDictMagic {
		return nil, evalerr.NewConfigError(path, fmt.Errorf("unrecognized magic for pronunciation dict"))
	}
	if h.Version != supportedVersion {
		return nil, evalerr.NewConfigError(path, fmt.Errorf("unsupported pronunciation dict version %d", h.Version))
	}

	dict := make(PronunciationDict)
	for r.Len() > 0 {
		var wordLen uint16
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			break
		}
		word := make([]byte, wordLen)
		if _, err := io.ReadFull(r, word); err != nil {
			return nil, evalerr.NewConfigError(path, fmt.Errorf("truncated word: %w", err))
		}
		var catCount uint8
		if err := binary.Read(r, binary.LittleEndian, &catCount); err != nil {
			return nil, evalerr.NewConfigError(path, fmt.Errorf("truncated category count: %w", err))
		}
		cats := make([]string, catCount)
		for i := range cats {
			var catLen uint8
			if err := binary.Read(r, binary.LittleEndian, &catLen); err != nil {
				return nil, evalerr.NewConfigError(path, fmt.Errorf("truncated category length: %w", err))
			}
			cat := make([]byte, catLen)
			if _, err := io.ReadFull(r, cat); err != nil {
				return nil, evalerr.NewConfigError(path, fmt.Errorf("truncated category: %w", err))
			}
			cats[i] = string(cat)
		}
		dict[strings.ToLower(string(word))] = cats
	}

	return dict, nil
}

func loadStopwordsInto(path string, set map[string]struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return evalerr.NewConfigError(path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		set[word] = struct{}{}
	}
	return scanner.Err()
}

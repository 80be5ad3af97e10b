// Package transcript implements the Transcript Builder (spec.md §4.3,
// component C3): folding per-word ASR timestamps into a pause-annotated
// token stream, recovering sentence boundaries from each ASR segment's
// punctuated display text, and serializing the token stream to the stable
// "[X.X second pause]" textual form used elsewhere in the pipeline and by
// external consumers.
//
// The serialize/round-trip-parse discipline follows the teacher's own
// webvtt and text transcript writers (cmd/transcriber/transcribe/webvtt.go,
// text.go), which also rendered timestamped spans to a fixed textual
// grammar meant to be machine-read back. Here the grammar is simpler (one
// marker kind instead of cue blocks) because the contract is internal to
// this repo rather than a player format.
//
// The pause-subtracted speaking_time/speaking_rate computation is grounded
// in original_source/CLI/speech_analyzer/time_analysis.py's
// neutralize_time_durations: total probed duration minus summed
// "[X.X second pause]" markers, word count over the remainder, both with
// the same floor-at-a-small-positive-value guard against a zero or
// negative denominator.
package transcript

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/speechlab/evaluator/internal/asr"
)

const (
	intraSegmentThresholdS = 1.0
	interSegmentThresholdS = 2.0
	minSpeakingTimeS       = 0.1
)

// TokenKind distinguishes the two Token variants (spec.md §3).
type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenPause
)

// PauseSource distinguishes a pause found inside one ASR segment from one
// found between two segments; the two are thresholded differently.
type PauseSource int

const (
	PauseIntraSegment PauseSource = iota
	PauseInterSegment
)

func (s PauseSource) String() string {
	if s == PauseInterSegment {
		return "inter_segment"
	}
	return "intra_segment"
}

// Token is either a Word or a Pause. Exactly one of the Word/Pause-specific
// fields is meaningful depending on Kind.
type Token struct {
	Kind TokenKind

	// Word fields
	Text   string
	StartS float64
	EndS   float64

	// Pause fields
	DurationS float64
	Source    PauseSource
}

// AnnotatedTranscript is the canonical C3 output (spec.md §3).
type AnnotatedTranscript struct {
	Tokens         []Token
	PauseCount     int
	TotalPauseTime float64
	SpeakingTime   float64
	WordCount      int
	SpeakingRate   float64

	// Sentences holds plain-text sentences recovered from each ASR
	// segment's engine-provided punctuated text (asr.Segment.Text), since
	// Tokens/Text never carry sentence-ending punctuation (neither Azure's
	// nor whisper.cpp's per-word/per-token text does). Analyzers that need
	// sentence boundaries (Structure C6, Content-Quality C7) use this
	// instead of re-tokenizing Tokens.
	Sentences []string
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Build folds an ASR transcription result's word timestamps into an
// AnnotatedTranscript. audioDurationS is the probed audio duration (C1);
// speaking_time is audioDurationS minus the total pause time, floored at
// minSpeakingTimeS so it never reaches zero or goes negative.
func Build(result *asr.TranscriptionResult, audioDurationS float64) *AnnotatedTranscript {
	t := &AnnotatedTranscript{}

	totalPause := 0.0
	for _, seg := range result.Segments {
		for wi, w := range seg.Words {
			if wi > 0 {
				prev := seg.Words[wi-1]
				gap := w.StartS - prev.EndS
				if gap >= intraSegmentThresholdS {
					d := round1(gap)
					t.Tokens = append(t.Tokens, Token{Kind: TokenPause, DurationS: d, Source: PauseIntraSegment})
					t.PauseCount++
					totalPause += d
				}
			}
			t.Tokens = append(t.Tokens, Token{Kind: TokenWord, Text: w.Text, StartS: w.StartS, EndS: w.EndS})
			t.WordCount++
		}
	}

	// Second pass: insert inter-segment pauses. Done separately from the
	// loop above because it needs to interleave a pause token between the
	// last word of segment k and the first word of segment k+1, which the
	// single flat Tokens slice built above has already concatenated.
	t.Tokens, t.PauseCount, totalPause = insertInterSegmentPauses(result, t.Tokens, t.PauseCount, totalPause)

	t.Sentences = sentencesFromSegments(result.Segments)

	t.TotalPauseTime = totalPause

	t.SpeakingTime = math.Max(minSpeakingTimeS, audioDurationS-totalPause)

	if t.SpeakingTime > 0 {
		t.SpeakingRate = float64(t.WordCount) / t.SpeakingTime
	}

	return t
}

var sentenceSplitRE = regexp.MustCompile(`[.!?]+`)

// splitSentences splits punctuated text on sentence-ending punctuation,
// trimming whitespace and dropping empty fragments.
func splitSentences(text string) []string {
	raw := sentenceSplitRE.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sentencesFromSegments recovers sentence boundaries from each segment's
// engine-provided punctuated text (asr.Segment.Text). When a segment's
// Text is empty, that segment's words are joined unpunctuated and treated
// as one sentence, the same degraded behavior either analyzer had before
// this field existed.
func sentencesFromSegments(segments []asr.Segment) []string {
	var out []string
	for _, seg := range segments {
		if seg.Text != "" {
			out = append(out, splitSentences(seg.Text)...)
			continue
		}
		var b strings.Builder
		for i, w := range seg.Words {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(w.Text)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// insertInterSegmentPauses re-walks segment boundaries to splice inter-segment
// pause tokens into the already-built flat token slice at the right offset.
func insertInterSegmentPauses(result *asr.TranscriptionResult, tokens []Token, pauseCount int, totalPause float64) ([]Token, int, float64) {
	if len(result.Segments) < 2 {
		return tokens, pauseCount, totalPause
	}

	// Map each segment's first/last word index within tokens by counting
	// word tokens consumed per segment in order.
	out := make([]Token, 0, len(tokens)+len(result.Segments))
	wordIdx := 0

	segForWord := func(idx int) int {
		cum := 0
		for si, seg := range result.Segments {
			cum += len(seg.Words)
			if idx < cum {
				return si
			}
		}
		return len(result.Segments) - 1
	}

	for _, tok := range tokens {
		if tok.Kind == TokenWord {
			curSeg := segForWord(wordIdx)
			if wordIdx > 0 {
				prevSeg := segForWord(wordIdx - 1)
				if curSeg != prevSeg {
					prevWord := result.Segments[prevSeg].Words[len(result.Segments[prevSeg].Words)-1]
					curWord := result.Segments[curSeg].Words[0]
					gap := curWord.StartS - prevWord.EndS
					if gap >= interSegmentThresholdS {
						d := round1(gap)
						out = append(out, Token{Kind: TokenPause, DurationS: d, Source: PauseInterSegment})
						pauseCount++
						totalPause += d
					}
				}
			}
			wordIdx++
		}
		out = append(out, tok)
	}

	return out, pauseCount, totalPause
}

// Serialize renders the transcript to its stable textual form: words
// separated by spaces, pauses rendered as "[X.X second pause]".
func Serialize(t *AnnotatedTranscript) string {
	var b strings.Builder
	for i, tok := range t.Tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch tok.Kind {
		case TokenWord:
			b.WriteString(tok.Text)
		case TokenPause:
			fmt.Fprintf(&b, "[%.1f second pause]", tok.DurationS)
		}
	}
	return b.String()
}

var pauseMarkerRE = regexp.MustCompile(`^\[(\d+(?:\.\d+)?) second pause\]$`)

// Parse reverses Serialize, recovering the token sequence from its textual
// form. Source (intra vs. inter segment) cannot be recovered from text
// alone, so parsed Pause tokens default to PauseIntraSegment; callers that
// need source fidelity must keep the original AnnotatedTranscript instead
// of round-tripping through text.
func Parse(s string) []Token {
	if s == "" {
		return nil
	}
	fields := strings.Fields(s)
	var tokens []Token
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if strings.HasPrefix(f, "[") && !strings.HasSuffix(f, "]") {
			// marker was split by spaces, e.g. "[1.4" "second" "pause]"
			joined := f
			for i+1 < len(fields) {
				i++
				joined += " " + fields[i]
				if strings.HasSuffix(fields[i], "]") {
					break
				}
			}
			f = joined
		}
		if m := pauseMarkerRE.FindStringSubmatch(f); m != nil {
			d, _ := strconv.ParseFloat(m[1], 64)
			tokens = append(tokens, Token{Kind: TokenPause, DurationS: d, Source: PauseIntraSegment})
			continue
		}
		tokens = append(tokens, Token{Kind: TokenWord, Text: f})
	}
	return tokens
}

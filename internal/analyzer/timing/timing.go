// Package timing implements the Timing Analyzer (spec.md §4.9, component
// C9): parses an expected-duration string such as "5-7 minutes" into a
// [min_s, max_s] window and scores the probed audio duration against it.
package timing

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/speechlab/evaluator/internal/analyzer"
	"github.com/speechlab/evaluator/internal/artifacts"
	"github.com/speechlab/evaluator/internal/evalerr"
)

// Status mirrors spec.md §4.9's three timing outcomes.
type Status string

const (
	StatusTooShort    Status = "too_short"
	StatusTooLong     Status = "too_long"
	StatusWithinRange Status = "within_range"
)

const (
	tooShortFactor = 0.9
	tooLongFactor  = 1.1
)

// durationRE accepts both a hyphen and an en dash as the range separator
// (spec.md §8's boundary-behavior requirement).
var durationRE = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(?:[-\x{2013}]\s*(\d+(?:\.\d+)?))?\s*minutes?\s*$`)

// ParseExpectedDuration parses "A[-B] minutes" into a [minS, maxS] window.
func ParseExpectedDuration(s string) (minS, maxS float64, err error) {
	m := durationRE.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, evalerr.NewInputError("expected_duration", fmt.Errorf("cannot parse %q as \"A[-B] minutes\"", s))
	}
	minVal, _ := strconv.ParseFloat(m[1], 64)
	maxVal := minVal
	if m[2] != "" {
		maxVal, _ = strconv.ParseFloat(m[2], 64)
	}
	if maxVal < minVal {
		minVal, maxVal = maxVal, minVal
	}
	return minVal * 60, maxVal * 60, nil
}

// Analyzer implements analyzer.Analyzer for C9.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) ID() string { return "timing" }

func (a *Analyzer) RequiredFeatures() []analyzer.RequiredFeature {
	return []analyzer.RequiredFeature{analyzer.FeatureAudio, analyzer.FeatureExpectedDuration}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (a *Analyzer) Analyze(_ context.Context, art *artifacts.Artifacts) (analyzer.Result, error) {
	minS, maxS, err := ParseExpectedDuration(art.RequestMetadata.ExpectedDuration)
	if err != nil {
		return analyzer.Result{}, err
	}

	d := art.AudioRef.DurationS
	center := (minS + maxS) / 2
	halfWidth := (maxS - minS) / 2
	if halfWidth <= 0 {
		halfWidth = minS * 0.1
	}
	if halfWidth <= 0 {
		halfWidth = 1
	}

	var status Status
	var score float64
	switch {
	case d < tooShortFactor*minS:
		status = StatusTooShort
		threshold := tooShortFactor * minS
		overshoot := 0.0
		if threshold > 0 {
			overshoot = (threshold - d) / threshold
		}
		score = clamp(80-overshoot*100, 50, 80)
	case d > tooLongFactor*maxS:
		status = StatusTooLong
		threshold := tooLongFactor * maxS
		overshoot := 0.0
		if threshold > 0 {
			overshoot = (d - threshold) / threshold
		}
		score = clamp(80-overshoot*100, 50, 80)
	default:
		status = StatusWithinRange
		deviation := 0.0
		if halfWidth > 0 {
			deviation = abs(d-center) / halfWidth
		}
		score = clamp(90-deviation*50, 80, 100)
	}

	pctDeviation := 0.0
	if center > 0 {
		pctDeviation = (d - center) / center * 100
	}

	var feedback []string
	switch status {
	case StatusTooShort:
		feedback = append(feedback, "expand the talk with more detail or examples to reach the expected duration")
	case StatusTooLong:
		feedback = append(feedback, "trim content to fit within the expected time window")
	}

	return analyzer.Result{
		ID:       a.ID(),
		Status:   analyzer.StatusOK,
		Score:    score,
		Feedback: feedback,
		Message:  fmt.Sprintf("actual %.0fs vs expected [%.0fs, %.0fs]: %s", d, minS, maxS, status),
		Details: map[string]any{
			"status":               string(status),
			"actual_s":             d,
			"expected_min_s":       minS,
			"expected_max_s":       maxS,
			"percentage_deviation": pctDeviation,
		},
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

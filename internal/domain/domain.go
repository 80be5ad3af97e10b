// Package domain registers per-domain vocabulary and scoring profiles
// (spec.md's `domain` request field, §6 "general" default). Restoring
// Server/models/vocabulary_evaluation.py's DOMAIN_CONFIGS from
// original_source/, a Profile carries not just an advanced-term whitelist
// but the same per-domain complexity- and pronunciation-weight vectors the
// original varied across its general/academic/business/technical/
// presentation configurations, so a technical talk is weighted toward
// phoneme precision and semantic specificity the same way the original
// reconfigured scoring per competition domain rather than just adding bonus
// vocabulary.
package domain

import "strings"

// ComplexityWeights mirrors DOMAIN_CONFIGS[*]["complexity_weights"]: the
// blend of a word's frequency rank, raw length, and semantic specificity
// that the Content-Quality Analyzer (C7) combines into a single per-word
// complexity score.
type ComplexityWeights struct {
	FrequencyWeight float64
	LengthWeight    float64
	SemanticWeight  float64
}

// PronunciationWeights mirrors DOMAIN_CONFIGS[*]["pronunciation_config"]
// ["scoring_weights"]: how the Pronunciation Analyzer (C11) blends its four
// sub-scores. Presentation profiles weight prosody higher than phoneme
// accuracy, for example, the same way the original did for that domain.
type PronunciationWeights struct {
	PhonemeAccuracy float64
	Prosody         float64
	Fluency         float64
	Articulation    float64
}

// GeneralComplexityWeights and GeneralPronunciationWeights are
// DOMAIN_CONFIGS["general"]'s weight vectors, used whenever a request names
// no domain or one unregistered.
var (
	GeneralComplexityWeights = ComplexityWeights{FrequencyWeight: 0.5, LengthWeight: 0.2, SemanticWeight: 0.3}

	// general never configured scoring_weights in the original; this is
	// this repo's own pre-restoration pronunciation.go constants, kept as
	// the fallback every other domain weight vector now overrides.
	GeneralPronunciationWeights = PronunciationWeights{PhonemeAccuracy: 0.35, Prosody: 0.25, Fluency: 0.20, Articulation: 0.20}
)

// Profile is one named domain's vocabulary and scoring configuration.
type Profile struct {
	Name string

	// Terms maps a lowercased domain term to its domain_terms adjustment
	// value (added directly to that word's complexity score, not blended
	// through ComplexityWeights — see TermAdjustment).
	Terms map[string]float64

	ComplexityWeights    ComplexityWeights
	PronunciationWeights PronunciationWeights
}

// Contains reports whether word (case-insensitive) is a recognized
// advanced/domain term for this profile.
func (p *Profile) Contains(word string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Terms[strings.ToLower(word)]
	return ok
}

// TermAdjustment returns the additive domain_terms bonus configured for
// word, or 0 if p is nil or word isn't one of its domain terms.
func (p *Profile) TermAdjustment(word string) float64 {
	if p == nil {
		return 0
	}
	return p.Terms[strings.ToLower(word)]
}

// ResolveComplexityWeights returns p's complexity weight vector, falling
// back to the general domain's when p is nil.
func (p *Profile) ResolveComplexityWeights() ComplexityWeights {
	if p == nil {
		return GeneralComplexityWeights
	}
	return p.ComplexityWeights
}

// ResolvePronunciationWeights returns p's pronunciation weight vector,
// falling back to the general domain's when p is nil.
func (p *Profile) ResolvePronunciationWeights() PronunciationWeights {
	if p == nil {
		return GeneralPronunciationWeights
	}
	return p.PronunciationWeights
}

// Registry holds every configured domain profile, keyed by name.
type Registry struct {
	profiles map[string]*Profile
}

// Definition is the raw, name-agnostic configuration for one domain,
// typically sourced from config at startup or DefaultProfiles below.
type Definition struct {
	Terms                map[string]float64
	ComplexityWeights    ComplexityWeights
	PronunciationWeights PronunciationWeights
}

// NewRegistry builds a registry from a name -> Definition map.
func NewRegistry(defs map[string]Definition) *Registry {
	r := &Registry{profiles: make(map[string]*Profile, len(defs))}
	for name, def := range defs {
		termSet := make(map[string]float64, len(def.Terms))
		for t, adj := range def.Terms {
			termSet[strings.ToLower(t)] = adj
		}
		r.profiles[strings.ToLower(name)] = &Profile{
			Name:                 name,
			Terms:                termSet,
			ComplexityWeights:    def.ComplexityWeights,
			PronunciationWeights: def.PronunciationWeights,
		}
	}
	return r
}

// Lookup returns the named profile, or nil if unregistered. An empty or
// "general" name always returns nil: the general domain has no bonus
// vocabulary or weight override by definition, and callers resolve its
// weights via GeneralComplexityWeights/GeneralPronunciationWeights.
func (r *Registry) Lookup(name string) *Profile {
	if r == nil || name == "" || strings.EqualFold(name, "general") {
		return nil
	}
	return r.profiles[strings.ToLower(name)]
}

// DefaultProfiles restores vocabulary_evaluation.py's DOMAIN_CONFIGS (minus
// "general", handled by the Resolve* fallbacks above) so a deployment with
// no configured reference data still gets domain-aware vocabulary and
// weight reconfiguration out of the box.
func DefaultProfiles() map[string]Definition {
	return map[string]Definition{
		"academic": {
			Terms: map[string]float64{
				"hypothesis": 0.2, "methodology": 0.2, "analysis": 0.2, "theoretical": 0.2,
				"empirical": 0.2, "correlation": 0.2, "causation": 0.2, "peer-reviewed": 0.2,
				"longitudinal": 0.2, "qualitative": 0.2, "quantitative": 0.2, "citation": 0.2,
			},
			ComplexityWeights:    ComplexityWeights{FrequencyWeight: 0.4, LengthWeight: 0.2, SemanticWeight: 0.4},
			PronunciationWeights: PronunciationWeights{PhonemeAccuracy: 0.3, Prosody: 0.3, Fluency: 0.2, Articulation: 0.2},
		},
		"business": {
			Terms: map[string]float64{
				"strategy": 0.2, "implementation": 0.2, "stakeholder": 0.2,
				"roi": 0.2, "conversion": 0.2, "pipeline": 0.2, "churn": 0.2,
				"upsell": 0.2, "differentiator": 0.2, "synergy": 0.2, "benchmark": 0.2,
			},
			ComplexityWeights:    ComplexityWeights{FrequencyWeight: 0.5, LengthWeight: 0.1, SemanticWeight: 0.4},
			PronunciationWeights: PronunciationWeights{PhonemeAccuracy: 0.25, Prosody: 0.3, Fluency: 0.25, Articulation: 0.2},
		},
		"technical": {
			Terms: map[string]float64{
				"algorithm": 0.3, "implementation": 0.2, "interface": 0.2,
				"architecture": 0.2, "latency": 0.2, "throughput": 0.2, "concurrency": 0.2,
				"idempotent": 0.2, "observability": 0.2, "scalability": 0.2,
			},
			ComplexityWeights:    ComplexityWeights{FrequencyWeight: 0.3, LengthWeight: 0.3, SemanticWeight: 0.4},
			PronunciationWeights: PronunciationWeights{PhonemeAccuracy: 0.4, Prosody: 0.2, Fluency: 0.2, Articulation: 0.2},
		},
		"presentation": {
			ComplexityWeights: ComplexityWeights{FrequencyWeight: 0.4, LengthWeight: 0.2, SemanticWeight: 0.4},
			// Presentations weight prosody highest among the four domains,
			// same as the original: delivery matters more than precision.
			PronunciationWeights: PronunciationWeights{PhonemeAccuracy: 0.2, Prosody: 0.4, Fluency: 0.25, Articulation: 0.15},
		},
	}
}

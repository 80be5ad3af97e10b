package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfileContainsIsCaseInsensitive(t *testing.T) {
	p := &Profile{Name: "business", Terms: map[string]float64{"roi": 0.2}}
	require.True(t, p.Contains("ROI"))
	require.True(t, p.Contains("roi"))
	require.False(t, p.Contains("churn"))
}

func TestNilProfileNeverContains(t *testing.T) {
	var p *Profile
	require.False(t, p.Contains("anything"))
	require.Equal(t, 0.0, p.TermAdjustment("anything"))
	require.Equal(t, GeneralComplexityWeights, p.ResolveComplexityWeights())
	require.Equal(t, GeneralPronunciationWeights, p.ResolvePronunciationWeights())
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(DefaultProfiles())

	p := r.Lookup("business")
	require.NotNil(t, p)
	require.True(t, p.Contains("pipeline"))
	require.Equal(t, 0.2, p.TermAdjustment("pipeline"))

	require.Nil(t, r.Lookup("unknown-domain"))
}

func TestDomainWeightsVaryAcrossProfiles(t *testing.T) {
	r := NewRegistry(DefaultProfiles())

	technical := r.Lookup("technical")
	require.Equal(t, ComplexityWeights{FrequencyWeight: 0.3, LengthWeight: 0.3, SemanticWeight: 0.4}, technical.ResolveComplexityWeights())
	require.Equal(t, PronunciationWeights{PhonemeAccuracy: 0.4, Prosody: 0.2, Fluency: 0.2, Articulation: 0.2}, technical.ResolvePronunciationWeights())

	presentation := r.Lookup("presentation")
	require.Greater(t, presentation.ResolvePronunciationWeights().Prosody, technical.ResolvePronunciationWeights().Prosody)
}

func TestLookupGeneralAndEmptyAlwaysNil(t *testing.T) {
	r := NewRegistry(DefaultProfiles())
	require.Nil(t, r.Lookup("general"))
	require.Nil(t, r.Lookup("General"))
	require.Nil(t, r.Lookup(""))
}

func TestNilRegistryLookupIsSafe(t *testing.T) {
	var r *Registry
	require.Nil(t, r.Lookup("business"))
}

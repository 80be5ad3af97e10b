package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimilarityIdenticalText(t *testing.T) {
	e := NewTFIDFEmbedder(nil, "the quick brown fox jumps", "the quick brown fox jumps")
	a := e.Embed("the quick brown fox jumps")
	b := e.Embed("the quick brown fox jumps")
	require.InDelta(t, 1.0, Similarity(a, b), 1e-6)
}

func TestSimilarityUnrelatedText(t *testing.T) {
	e := NewTFIDFEmbedder(nil, "marketing budget quarterly revenue growth", "kubernetes cluster networking dns pods")
	a := e.Embed("marketing budget quarterly revenue growth")
	b := e.Embed("kubernetes cluster networking dns pods")
	require.InDelta(t, 0.0, Similarity(a, b), 1e-9)
}

func TestSimilarityPartialOverlap(t *testing.T) {
	e := NewTFIDFEmbedder(nil, "our quarterly sales strategy focuses on growth", "sales strategy discussion")
	a := e.Embed("our quarterly sales strategy focuses on growth")
	b := e.Embed("sales strategy discussion")
	sim := Similarity(a, b)
	require.Greater(t, sim, 0.0)
	require.Less(t, sim, 1.0)
}

func TestEmbedEmptyTextReturnsZeroVector(t *testing.T) {
	e := NewTFIDFEmbedder(nil, "some document")
	vec := e.Embed("")
	for _, v := range vec {
		require.Equal(t, 0.0, v)
	}
}

package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPatternsHasAtLeastEight(t *testing.T) {
	assert.GreaterOrEqual(t, len(DefaultPatterns()), 8)
}

func TestMatchPatternsExactCentroidScoresHigh(t *testing.T) {
	patterns := DefaultPatterns()
	target := patterns[0]
	matches := MatchPatterns(patterns, target.CentroidFeatures, set(FlagWhaleConcentration, FlagLPNotLocked, FlagMintAuthorityLive))
	require.NotEmpty(t, matches)
	assert.Equal(t, target.ID, matches[0].Pattern.ID)
	assert.GreaterOrEqual(t, matches[0].Confidence, 0.5)
}

func TestMatchPatternsReturnsAtMostThree(t *testing.T) {
	patterns := DefaultPatterns()
	var zero [FeatureCount]float64
	// a zero vector has zero cosine similarity with every centroid
	// (cosineSimilarity returns 0 for a zero norm), so query with the first
	// pattern's centroid instead. With every required indicator present,
	// each pattern's coverage is 1 and even an orthogonal centroid scores
	// 0.6*0.5+0.4 = 0.7, so all eight patterns clear 0.5 and the cap applies.
	flags := make(map[string]bool)
	for _, p := range patterns {
		for ind := range p.RequiredIndicators {
			flags[ind] = true
		}
	}
	matches := MatchPatterns(patterns, patterns[0].CentroidFeatures, flags)
	assert.LessOrEqual(t, len(matches), 3)
	_ = zero
}

func TestCosineSimilarityOrthogonalIsZero(t *testing.T) {
	var a, b [FeatureCount]float64
	a[0] = 1
	b[1] = 1
	assert.InDelta(t, 0, cosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarityIdenticalIsOne(t *testing.T) {
	var a [FeatureCount]float64
	a[0], a[5] = 0.5, 0.2
	assert.InDelta(t, 1, cosineSimilarity(a, a), 1e-9)
}

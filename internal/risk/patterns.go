package risk

import (
	"math"
	"sort"

	"poolwatch/internal/domain"
)

// DefaultPatterns returns the built-in scam pattern library (§4.D: "at
// least 8 scam patterns"). Centroids are archetypes in the §4.C 29-dim
// feature space; requiredIndicators name the flag types (see flags.go)
// that must co-occur for a match to count toward indicatorCoverage.
func DefaultPatterns() []domain.ScamPattern {
	return []domain.ScamPattern{
		{
			ID:       "whale-rug",
			Name:     "Whale-controlled rug setup",
			Severity: domain.SeverityCritical,
			CentroidFeatures: centroid(map[int]float64{
				6: 0.9, 10: 0.8, 13: 0.0, 14: 0.0, 11: 0.0, 12: 0.0,
			}),
			RequiredIndicators: set(FlagWhaleConcentration, FlagLPNotLocked, FlagMintAuthorityLive),
			HistoricalRugRate:  0.82,
			Active:             true,
		},
		{
			ID:       "bundle-pump",
			Name:     "Coordinated bundle pump",
			Severity: domain.SeverityCritical,
			CentroidFeatures: centroid(map[int]float64{
				15: 1.0, 16: 0.6, 17: 0.8, 18: 1.0, 19: 0.0,
			}),
			RequiredIndicators: set(FlagBundleControl),
			HistoricalRugRate:  0.76,
			Active:             true,
		},
		{
			ID:       "fresh-wallet-swarm",
			Name:     "Fresh wallet swarm",
			Severity: domain.SeverityHigh,
			CentroidFeatures: centroid(map[int]float64{
				8: 0.9, 5: 0.3, 9: 0.4,
			}),
			RequiredIndicators: set(FlagFreshWalletSwarm),
			HistoricalRugRate:  0.55,
			Active:             true,
		},
		{
			ID:       "mint-authority-live-scam",
			Name:     "Live mint authority scam",
			Severity: domain.SeverityHigh,
			CentroidFeatures: centroid(map[int]float64{
				11: 0.0, 12: 0.0, 13: 0.0,
			}),
			RequiredIndicators: set(FlagMintAuthorityLive, FlagLPNotLocked),
			HistoricalRugRate:  0.61,
			Active:             true,
		},
		{
			ID:       "serial-rugger",
			Name:     "Serial creator rug history",
			Severity: domain.SeverityCritical,
			CentroidFeatures: centroid(map[int]float64{
				26: 1.0, 27: 1.0, 28: 0.6,
			}),
			RequiredIndicators: set(FlagCreatorRugHistory),
			HistoricalRugRate:  0.91,
			Active:             true,
		},
		{
			ID:       "wash-volume",
			Name:     "Wash-traded volume spike",
			Severity: domain.SeverityMedium,
			CentroidFeatures: centroid(map[int]float64{
				1: 1.0, 22: 1.0, 20: 0.5, 21: 0.5,
			}),
			RequiredIndicators: set(),
			HistoricalRugRate:  0.34,
			Active:             true,
		},
		{
			ID:       "instant-dump",
			Name:     "Instant post-launch dump",
			Severity: domain.SeverityHigh,
			CentroidFeatures: centroid(map[int]float64{
				23: -1.0, 3: -1.0, 24: 1.0,
			}),
			RequiredIndicators: set(FlagExtremePriceMove),
			HistoricalRugRate:  0.58,
			Active:             true,
		},
		{
			ID:       "thin-liquidity-trap",
			Name:     "Thin liquidity trap",
			Severity: domain.SeverityMedium,
			CentroidFeatures: centroid(map[int]float64{
				0: 0.1, 9: 0.5, 13: 0.0,
			}),
			RequiredIndicators: set(FlagLPNotLocked),
			HistoricalRugRate:  0.44,
			Active:             true,
		},
	}
}

func centroid(sparse map[int]float64) [FeatureCount]float64 {
	var c [FeatureCount]float64
	for i, v := range sparse {
		c[i] = v
	}
	return c
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// MatchPatterns compares featureVec against every active pattern in the
// library, combining feature-space cosine similarity with the fraction
// of required indicators satisfied by presentFlags (§4.D). Returns at
// most 3 matches with confidence >= 0.5, sorted descending.
func MatchPatterns(patterns []domain.ScamPattern, featureVec [FeatureCount]float64, presentFlags map[string]bool) []domain.PatternMatch {
	var matches []domain.PatternMatch
	for _, p := range patterns {
		if !p.Active {
			continue
		}
		sim := cosineSimilarity(featureVec, p.CentroidFeatures)
		simScaled := (sim + 1) / 2

		matched := make(map[string]bool)
		for ind := range p.RequiredIndicators {
			if presentFlags[ind] {
				matched[ind] = true
			}
		}
		coverage := 1.0
		if len(p.RequiredIndicators) > 0 {
			coverage = float64(len(matched)) / float64(len(p.RequiredIndicators))
		}

		confidence := 0.6*simScaled + 0.4*coverage
		if confidence < 0.5 {
			continue
		}
		matches = append(matches, domain.PatternMatch{
			Pattern:           p,
			Confidence:        confidence,
			MatchedIndicators: matched,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	if len(matches) > 3 {
		matches = matches[:3]
	}
	return matches
}

func cosineSimilarity(a, b [FeatureCount]float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/domain"
	"poolwatch/internal/features"
)

func TestScoreRuleBasedScenario6Rejects(t *testing.T) {
	in := features.Inputs{
		Top10Concentration:   0.85,
		MintDisabled:         false,
		BundleDetected:       true,
		BundleControlPercent: 0.7,
	}
	vec := features.Extract(in)
	s := NewScorer(nil, nil)
	report := s.Score(vec, in)

	assert.Equal(t, "rule-based", report.Mode)
	assert.GreaterOrEqual(t, report.RiskScore, 70)

	var sawHighOrAbove bool
	for _, f := range report.Flags {
		if f.Severity >= domain.SeverityHigh {
			sawHighOrAbove = true
		}
	}
	assert.True(t, sawHighOrAbove)

	allow, _, reason := Gate(report)
	assert.False(t, allow, "gate must reject scenario 6: %s", reason)
}

func TestScoreCleanTokenAllowsThrough(t *testing.T) {
	in := features.Inputs{
		LiquidityUsd:       500000,
		Volume24h:          100000,
		MarketCap:          2000000,
		HolderCount:        5000,
		Top10Concentration: 0.1,
		MintDisabled:       true,
		FreezeDisabled:     true,
		LPLockedPct:        0.95,
		LPBurned:           true,
		AgeHours:           720,
		Buys24h:            500,
		Sells24h:            480,
	}
	vec := features.Extract(in)
	s := NewScorer(nil, nil)
	report := s.Score(vec, in)

	allow, _, _ := Gate(report)
	assert.True(t, allow)
	assert.LessOrEqual(t, report.RiskScore, 75)
}

func TestScoreNeuralModeIsDeterministic(t *testing.T) {
	c := tinyClassifier()
	s := NewScorer(c, nil)
	var vec [FeatureCount]float64
	for i := range vec {
		vec[i] = float64(i%7) / 7
	}
	in := features.Inputs{}
	a := s.Score(vec, in)
	b := s.Score(vec, in)
	assert.Equal(t, a.RiskScore, b.RiskScore)
	assert.Equal(t, a.RiskLevel, b.RiskLevel)
	assert.Equal(t, "neural", a.Mode)
}

func TestGateCriticalFlagAlwaysRejects(t *testing.T) {
	report := domain.RiskReport{
		RiskScore: 10,
		Flags:     []domain.Flag{{Severity: domain.SeverityCritical}},
	}
	allow, _, _ := Gate(report)
	assert.False(t, allow)
}

func TestGateHighPatternWarnsWithoutRejecting(t *testing.T) {
	report := domain.RiskReport{
		RiskScore: 10,
		PatternMatches: []domain.PatternMatch{
			{Pattern: domain.ScamPattern{Severity: domain.SeverityHigh}, Confidence: 0.65},
		},
	}
	allow, warn, _ := Gate(report)
	require.True(t, allow)
	assert.True(t, warn)
}

func TestFeatureImportanceSumsToOne(t *testing.T) {
	s := NewScorer(nil, nil)
	vec := features.Extract(features.Inputs{Top10Concentration: 0.3})
	report := s.Score(vec, features.Inputs{Top10Concentration: 0.3})
	var sum float64
	for _, v := range report.FeatureImportance {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

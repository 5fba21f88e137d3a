package risk

import (
	"poolwatch/internal/domain"
	"poolwatch/internal/features"
)

// featureNames mirrors the §4.C table, index for index, so
// featureImportance can be reported by name rather than bare index.
var featureNames = [FeatureCount]string{
	"liquidityLog", "volumeToLiquidity", "marketCapLog", "priceVelocity",
	"volumeLog", "holderCountLog", "top10Concentration", "gini",
	"freshWalletRatio", "whaleCount", "topWhalePercent", "mintDisabled",
	"freezeDisabled", "lpLocked", "lpBurned", "bundleDetected",
	"bundleCountNorm", "bundleControlPercent", "bundleConfidence",
	"bundleQuality", "buyRatio24h", "buyRatio1h", "activityLevel",
	"momentum", "ageDecay", "tradingRecency", "creatorIdentified",
	"creatorRugHistory", "creatorHoldings",
}

// safetyDirection[i] is true when a higher value at index i means safer.
// Used to turn a raw feature into a 0..1 "safety" reading for both the
// fallback score and the reported feature importance.
var safetyDirection = [FeatureCount]bool{
	true, true, true, false, true, true, false, false,
	false, false, false, true, true, true, true, false,
	false, false, false, true, false, false, true, false,
	false, true, true, false, false,
}

// fallbackSafetyIndices are the five features with the strongest, most
// reliable rug-pull signal: holder concentration, bundle manipulation,
// and live mint authority. §4.D's fallback formula is specified only as
// "weighted_average_of_safety_features"; the weighting itself is an
// implementation decision, made here by restricting the average to the
// indicators the hard-coded flags already treat as load-bearing rather
// than diluting it with market-data features that read as "safe" purely
// because no data was supplied.
var fallbackSafetyIndices = [5]int{6, 11, 15, 17, 19}

// Scorer is the Risk Scorer (§4.D). A nil classifier runs the rule-based
// fallback mode.
type Scorer struct {
	classifier *Classifier
	patterns   []domain.ScamPattern
}

// NewScorer builds a Scorer. patterns may be nil to use DefaultPatterns.
// classifier may be nil, in which case Score runs in "rule-based" mode.
func NewScorer(classifier *Classifier, patterns []domain.ScamPattern) *Scorer {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &Scorer{classifier: classifier, patterns: patterns}
}

// Score runs the full §4.D pipeline on one feature vector: classify (or
// fall back to the rule-based estimate), evaluate hard-coded flags,
// match against the pattern library, and assemble the RiskReport.
func (s *Scorer) Score(vec [FeatureCount]float64, in features.Inputs) domain.RiskReport {
	flags := EvaluateFlags(in)

	presentFlags := make(map[string]bool, len(flags))
	for _, f := range flags {
		presentFlags[f.Type] = true
	}
	matches := MatchPatterns(s.patterns, vec, presentFlags)

	var score, confidence int
	var level domain.RiskLevel
	var mode string
	var importance map[string]float64

	if s.classifier != nil {
		probs := s.classifier.Classify(vec)
		score = clampScore(round(100 * (probs[domain.Dangerous] + probs[domain.Scam])))
		level, confidence = argmaxLevel(probs)
		mode = "neural"
		importance = neuralImportance(s.classifier)
	} else {
		safety := weightedAverageSafety(vec)
		score = clampScore(round(100 * (1 - safety)))
		level = levelFromScore(score)
		confidence = 50 // rule-based mode makes no probabilistic claim
		mode = "rule-based"
		importance = ruleImportance(vec)
	}

	return domain.RiskReport{
		RiskScore:         score,
		RiskLevel:         level,
		Confidence:        confidence,
		Flags:             flags,
		PatternMatches:    matches,
		FeatureImportance: importance,
		Mode:              mode,
	}
}

// Gate applies the downstream paper-trading gating policy (§4.D) to a
// completed RiskReport. allow is false whenever any rejection rule
// fires; warn is true when a HIGH pattern match should surface a
// warning without blocking.
func Gate(report domain.RiskReport) (allow bool, warn bool, reason string) {
	if hasCritical(report.Flags) {
		return false, false, "critical flag present"
	}
	if report.RiskScore > 75 {
		return false, false, "risk score exceeds threshold"
	}
	for _, m := range report.PatternMatches {
		if m.Pattern.Severity == domain.SeverityCritical && m.Confidence > 0.7 {
			return false, false, "critical pattern match: " + m.Pattern.Name
		}
	}
	for _, m := range report.PatternMatches {
		if m.Pattern.Severity == domain.SeverityHigh && m.Confidence > 0.6 {
			warn = true
			reason = "high-severity pattern match: " + m.Pattern.Name
		}
	}
	return true, warn, reason
}

func argmaxLevel(probs [classCount]float64) (domain.RiskLevel, int) {
	best := 0
	for i := 1; i < classCount; i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return domain.RiskLevel(best), clampScore(round(100 * probs[best]))
}

func levelFromScore(score int) domain.RiskLevel {
	switch {
	case score >= 75:
		return domain.Scam
	case score >= 50:
		return domain.Dangerous
	case score >= 25:
		return domain.Suspicious
	default:
		return domain.Safe
	}
}

func weightedAverageSafety(vec [FeatureCount]float64) float64 {
	var sum float64
	for _, i := range fallbackSafetyIndices {
		if safetyDirection[i] {
			sum += vec[i]
		} else {
			sum += 1 - vec[i]
		}
	}
	return sum / float64(len(fallbackSafetyIndices))
}

func ruleImportance(vec [FeatureCount]float64) map[string]float64 {
	deviations := make([]float64, FeatureCount)
	var total float64
	for i, v := range vec {
		safe := v
		if !safetyDirection[i] {
			safe = 1 - v
		}
		d := absF(safe - 0.5)
		deviations[i] = d
		total += d
	}
	out := make(map[string]float64, FeatureCount)
	for i, name := range featureNames {
		if total == 0 {
			out[name] = 0
			continue
		}
		out[name] = deviations[i] / total
	}
	return out
}

// neuralImportance approximates per-feature importance as the first
// layer's ternary weight magnitude summed across the hidden units,
// normalized to sum 1. A feature every hidden unit ignores (all-zero
// column) contributes nothing.
func neuralImportance(c *Classifier) map[string]float64 {
	var totals [FeatureCount]float64
	var grand float64
	for _, row := range c.l1.Weights {
		for i, w := range row {
			if w != 0 {
				totals[i]++
				grand++
			}
		}
	}
	out := make(map[string]float64, FeatureCount)
	for i, name := range featureNames {
		if grand == 0 {
			out[name] = 0
			continue
		}
		out[name] = totals[i] / grand
	}
	return out
}

func clampScore(x int) int {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

func round(x float64) int {
	if x < 0 {
		return int(x - 0.5)
	}
	return int(x + 0.5)
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Package outcome implements the Outcome Learner (§4.I): a process-
// lifetime record of predictions and their later-observed outcomes,
// feeding accuracy statistics and a Pearson-correlation feature
// importance ranking. Grounded on teacher's internal/storage
// interface-per-concern idiom (persistence is behind an interface; the
// in-memory, process-lifetime Learner is the default implementation).
package outcome

// Verdict mirrors domain.RiskLevel at prediction time.
type Verdict string

const (
	VerdictSafe       Verdict = "SAFE"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictDangerous  Verdict = "DANGEROUS"
	VerdictScam       Verdict = "SCAM"
)

// Outcome is the later-observed real-world result for a prediction.
type Outcome string

const (
	OutcomeRug     Outcome = "RUG"
	OutcomeDump    Outcome = "DUMP"
	OutcomeStable  Outcome = "STABLE"
	OutcomeMoon    Outcome = "MOON"
	OutcomeUnknown Outcome = "UNKNOWN"
)

// isBadOutcome reports whether o counts as the "rug" class for
// getFeatureImportance's binary correlation target (§4.I).
func (o Outcome) isBadOutcome() bool {
	return o == OutcomeRug || o == OutcomeDump
}

// Prediction is one recorded risk-scorer verdict, linkable to a later
// Outcome by PredictionID.
type Prediction struct {
	PredictionID      string
	Mint              string
	Timestamp         int64 // unix millis
	RiskScore         int
	Verdict           Verdict
	Confidence        int
	Features          [29]float64
	MatchedPatternIDs []string
}

// OutcomeRecord is the later-arriving real-world result for a Prediction.
type OutcomeRecord struct {
	PredictionID    string
	Outcome         Outcome
	PriceChange     float64
	LiquidityChange float64
	TimeToOutcomeMs int64
	Details         string
}

// Stats is getStats()'s return shape: counts plus accuracy broken down
// overall and per predicted verdict class.
type Stats struct {
	TotalPredictions int
	TotalOutcomes    int
	Accuracy         Accuracy
}

// Accuracy reports the fraction of outcomes that "matched" their
// predicted verdict (a DANGEROUS/SCAM prediction is correct if the
// outcome was RUG or DUMP; a SAFE/SUSPICIOUS prediction is correct if
// the outcome was STABLE or MOON).
type Accuracy struct {
	Overall  float64
	PerClass map[Verdict]float64
}

// FeatureImportance is one ranked entry from getFeatureImportance().
type FeatureImportance struct {
	FeatureIndex int
	FeatureName  string
	Correlation  float64 // Pearson correlation with the binary bad-outcome target
}

// Rationalizer optionally produces a human-readable explanation for a
// recorded outcome (§4.I: "may optionally invoke an external LLM"). A
// nil Rationalizer, or one that errors, never blocks persistence of the
// numeric outcome.
type Rationalizer interface {
	Rationalize(pred Prediction, rec OutcomeRecord) (string, error)
}

// verdictMatchesOutcome implements the correctness rule used by
// Accuracy.
func verdictMatchesOutcome(v Verdict, o Outcome) bool {
	switch v {
	case VerdictDangerous, VerdictScam:
		return o == OutcomeRug || o == OutcomeDump
	case VerdictSafe, VerdictSuspicious:
		return o == OutcomeStable || o == OutcomeMoon
	default:
		return false
	}
}

// featureNames mirrors risk.featureNames's ordering (§4.C); duplicated
// here rather than imported, since outcome reports by name without
// depending on the risk package for a single display-label slice.
var featureNames = [29]string{
	"liquidityLog", "volumeToLiquidity", "marketCapLog", "priceVelocity",
	"volumeLog", "holderCountLog", "top10Concentration", "gini",
	"freshWalletRatio", "whaleCount", "topWhalePercent", "mintDisabled",
	"freezeDisabled", "lpLocked", "lpBurned", "bundleDetected",
	"bundleCountNorm", "bundleControlPercent", "bundleConfidence",
	"bundleQuality", "buyRatio24h", "buyRatio1h", "activityLevel",
	"momentum", "ageDecay", "tradingRecency", "creatorIdentified",
	"creatorRugHistory", "creatorHoldings",
}

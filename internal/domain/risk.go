package domain

// Severity is the shared severity scale for both scorer flags and
// pattern-library matches (§4.D).
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String renders a Severity for journal/sink payloads and log lines.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// RiskLevel is the classifier's argmax class.
type RiskLevel int

const (
	Safe RiskLevel = iota
	Suspicious
	Dangerous
	Scam
)

// String renders a RiskLevel.
func (l RiskLevel) String() string {
	switch l {
	case Safe:
		return "SAFE"
	case Suspicious:
		return "SUSPICIOUS"
	case Dangerous:
		return "DANGEROUS"
	case Scam:
		return "SCAM"
	default:
		return "UNKNOWN"
	}
}

// Flag is a hard-coded-rule finding over the raw snapshot, independent of
// the network output.
type Flag struct {
	Type     string
	Severity Severity
	Message  string
}

// ScamPattern is a pattern-library entry: a known-bad centroid in the
// 29-dim feature space plus the indicators that must co-occur with it.
type ScamPattern struct {
	ID                 string
	Name               string
	Severity           Severity
	CentroidFeatures   [29]float64
	RequiredIndicators map[string]bool
	HistoricalRugRate  float64
	Active             bool
}

// PatternMatch is the result of comparing a feature vector against one
// ScamPattern.
type PatternMatch struct {
	Pattern           ScamPattern
	Confidence        float64
	MatchedIndicators map[string]bool
}

// RiskReport is the Risk Scorer's full output for one PoolSnapshot.
type RiskReport struct {
	RiskScore         int
	RiskLevel         RiskLevel
	Confidence        int
	Flags             []Flag
	PatternMatches    []PatternMatch
	FeatureImportance map[string]float64
	Mode              string // "neural" or "rule-based"
}

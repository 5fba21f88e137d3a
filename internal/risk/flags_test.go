package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"poolwatch/internal/domain"
	"poolwatch/internal/features"
)

func TestEvaluateFlagsScenario6(t *testing.T) {
	in := features.Inputs{
		Top10Concentration:   0.85,
		MintDisabled:         false,
		BundleDetected:       true,
		BundleControlPercent: 0.7,
	}
	flags := EvaluateFlags(in)

	var sawWhale, sawBundle bool
	highestSev := domain.SeverityLow
	for _, f := range flags {
		if f.Type == FlagWhaleConcentration {
			sawWhale = true
		}
		if f.Type == FlagBundleControl {
			sawBundle = true
		}
		if f.Severity > highestSev {
			highestSev = f.Severity
		}
	}
	assert.True(t, sawWhale)
	assert.True(t, sawBundle)
	assert.GreaterOrEqual(t, highestSev, domain.SeverityHigh)
}

func TestEvaluateFlagsCleanTokenYieldsNoCritical(t *testing.T) {
	in := features.Inputs{
		Top10Concentration: 0.1,
		MintDisabled:       true,
		FreezeDisabled:     true,
		LPLockedPct:        0.95,
		HolderCount:        500,
	}
	flags := EvaluateFlags(in)
	assert.False(t, hasCritical(flags))
}

func TestHasCritical(t *testing.T) {
	assert.True(t, hasCritical([]domain.Flag{{Severity: domain.SeverityCritical}}))
	assert.False(t, hasCritical([]domain.Flag{{Severity: domain.SeverityHigh}}))
}

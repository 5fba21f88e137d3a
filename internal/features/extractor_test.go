package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAllCoordinatesFiniteAndBounded(t *testing.T) {
	in := Inputs{} // every field zero/unknown
	v := Extract(in)
	for i, x := range v {
		assert.False(t, math.IsNaN(x), "index %d is NaN", i)
		assert.False(t, math.IsInf(x, 0), "index %d is Inf", i)
		assert.GreaterOrEqual(t, x, -1.0, "index %d below -1", i)
		assert.LessOrEqual(t, x, 1.0, "index %d above 1", i)
	}
}

func TestExtractScenario6Indicators(t *testing.T) {
	in := Inputs{
		Top10Concentration:   0.85,
		MintDisabled:         false,
		BundleDetected:       true,
		BundleControlPercent: 0.7,
	}
	v := Extract(in)
	assert.InDelta(t, 0.85, v[6], 1e-9)
	assert.Equal(t, float64(0), v[11])
	assert.Equal(t, float64(1), v[15])
	assert.InDelta(t, 0.7, v[17], 1e-9)
}

func TestLiquidityLogSaturatesAtOne(t *testing.T) {
	v := Extract(Inputs{LiquidityUsd: 1e9})
	assert.Equal(t, 1.0, v[0])
}

func TestPriceVelocityClampsToRange(t *testing.T) {
	v := Extract(Inputs{PriceChange5m: 500})
	assert.Equal(t, 1.0, v[3])
	v = Extract(Inputs{PriceChange5m: -500})
	assert.Equal(t, -1.0, v[3])
}

func TestLPLockedFeature(t *testing.T) {
	v := Extract(Inputs{LPLockedPct: 0.9})
	assert.Equal(t, 1.0, v[13])
	v = Extract(Inputs{LPLockedPct: 0.3})
	assert.InDelta(t, 0.3, v[13], 1e-9)
}

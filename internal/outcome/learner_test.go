package outcome

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePrediction(mint string, ts int64, verdict Verdict) Prediction {
	return Prediction{Mint: mint, Timestamp: ts, RiskScore: 80, Verdict: verdict}
}

func TestRecordPredictionAssignsID(t *testing.T) {
	l := New(nil)
	id, err := l.RecordPrediction(basePrediction("mintA", 1000, VerdictDangerous))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestRecordOutcomeUnknownPredictionErrors(t *testing.T) {
	l := New(nil)
	err := l.RecordOutcome("nope", OutcomeRecord{Outcome: OutcomeRug})
	assert.ErrorIs(t, err, ErrUnknownPrediction)
}

func TestGetPendingOutcomesReturnsOnlyOld(t *testing.T) {
	l := New(nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	oldID, _ := l.RecordPrediction(basePrediction("mintOld", now.Add(-20*time.Minute).UnixMilli(), VerdictSafe))
	_, _ = l.RecordPrediction(basePrediction("mintNew", now.Add(-1*time.Minute).UnixMilli(), VerdictSafe))

	pending, err := l.GetPendingOutcomes(10*time.Minute, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, oldID, pending[0].PredictionID)
}

func TestGetPendingOutcomesExcludesLinked(t *testing.T) {
	l := New(nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id, _ := l.RecordPrediction(basePrediction("mintA", now.Add(-20*time.Minute).UnixMilli(), VerdictSafe))
	require.NoError(t, l.RecordOutcome(id, OutcomeRecord{Outcome: OutcomeStable}))

	pending, err := l.GetPendingOutcomes(10*time.Minute, now)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetStatsComputesOverallAndPerClassAccuracy(t *testing.T) {
	l := New(nil)
	now := time.Now().UnixMilli()

	id1, _ := l.RecordPrediction(basePrediction("m1", now, VerdictDangerous))
	require.NoError(t, l.RecordOutcome(id1, OutcomeRecord{Outcome: OutcomeRug})) // correct

	id2, _ := l.RecordPrediction(basePrediction("m2", now, VerdictDangerous))
	require.NoError(t, l.RecordOutcome(id2, OutcomeRecord{Outcome: OutcomeStable})) // wrong

	id3, _ := l.RecordPrediction(basePrediction("m3", now, VerdictSafe))
	require.NoError(t, l.RecordOutcome(id3, OutcomeRecord{Outcome: OutcomeMoon})) // correct

	_, _ = l.RecordPrediction(basePrediction("m4", now, VerdictSafe)) // no outcome yet

	stats, err := l.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalPredictions)
	assert.Equal(t, 3, stats.TotalOutcomes)
	assert.InDelta(t, 2.0/3.0, stats.Accuracy.Overall, 1e-9)
	assert.InDelta(t, 0.5, stats.Accuracy.PerClass[VerdictDangerous], 1e-9)
	assert.InDelta(t, 1.0, stats.Accuracy.PerClass[VerdictSafe], 1e-9)
}

func TestGetFeatureImportanceRanksPerfectlyCorrelatedFeatureFirst(t *testing.T) {
	l := New(nil)
	now := time.Now().UnixMilli()

	for i := 0; i < 10; i++ {
		pred := basePrediction("m", now, VerdictDangerous)
		pred.Features[6] = float64((i + 1) % 2) // 1 exactly when the outcome below is RUG
		id, _ := l.RecordPrediction(pred)
		outcome := OutcomeStable
		if i%2 == 0 {
			outcome = OutcomeRug
		}
		require.NoError(t, l.RecordOutcome(id, OutcomeRecord{Outcome: outcome}))
	}

	importance, err := l.GetFeatureImportance()
	require.NoError(t, err)
	require.Len(t, importance, 29)
	assert.Equal(t, 6, importance[0].FeatureIndex)
	assert.InDelta(t, 1.0, importance[0].Correlation, 1e-9)
	// every entry present and sorted by |correlation| descending
	for i := 1; i < len(importance); i++ {
		assert.GreaterOrEqual(t, absF(importance[i-1].Correlation), absF(importance[i].Correlation))
	}
}

func TestGetFeatureImportanceWithInsufficientDataReturnsZeroes(t *testing.T) {
	l := New(nil)
	importance, err := l.GetFeatureImportance()
	require.NoError(t, err)
	require.Len(t, importance, 29)
	for _, fi := range importance {
		assert.Zero(t, fi.Correlation)
	}
}

type fakeRationalizer struct {
	rationale string
	err       error
}

func (f *fakeRationalizer) Rationalize(pred Prediction, rec OutcomeRecord) (string, error) {
	return f.rationale, f.err
}

func TestRecordOutcomeAttachesRationale(t *testing.T) {
	l := New(&fakeRationalizer{rationale: "classic rug pattern"})
	id, _ := l.RecordPrediction(basePrediction("m1", time.Now().UnixMilli(), VerdictDangerous))
	require.NoError(t, l.RecordOutcome(id, OutcomeRecord{Outcome: OutcomeRug}))

	l.mu.RLock()
	details := l.predictions[id].outcome.Details
	l.mu.RUnlock()
	assert.Equal(t, "classic rug pattern", details)
}

func TestRecordOutcomeSurvivesRationalizerFailure(t *testing.T) {
	l := New(&fakeRationalizer{err: errors.New("llm unavailable")})
	id, _ := l.RecordPrediction(basePrediction("m1", time.Now().UnixMilli(), VerdictDangerous))
	err := l.RecordOutcome(id, OutcomeRecord{Outcome: OutcomeRug})
	require.NoError(t, err)

	l.mu.RLock()
	outcome := l.predictions[id].outcome
	l.mu.RUnlock()
	require.NotNil(t, outcome)
	assert.Equal(t, OutcomeRug, outcome.Outcome)
	assert.Empty(t, outcome.Details)
}

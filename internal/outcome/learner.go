package outcome

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Store is the persistence-agnostic interface §4.I describes: "the core
// exposes only the interface." Learner is the in-memory, process-
// lifetime implementation. PostgresStore (internal/outcome/postgres.go)
// is a separate durable store with context-taking methods; it does not
// implement Store and does not wrap a Learner.
type Store interface {
	RecordPrediction(pred Prediction) (string, error)
	RecordOutcome(predictionID string, rec OutcomeRecord) error
	GetPendingOutcomes(olderThan time.Duration, now time.Time) ([]Prediction, error)
	GetStats() (Stats, error)
	GetFeatureImportance() ([]FeatureImportance, error)
}

type linkedPrediction struct {
	prediction Prediction
	outcome    *OutcomeRecord
}

// Learner is the default in-memory Store (§4.I). Safe for concurrent
// use; grounded on internal/metrics/aggregator.go's mutex-guarded
// running-stats shape.
type Learner struct {
	mu           sync.RWMutex
	predictions  map[string]*linkedPrediction
	rationalizer Rationalizer
	seq          atomic.Uint64
}

// New constructs an empty Learner. rationalizer may be nil.
func New(rationalizer Rationalizer) *Learner {
	return &Learner{
		predictions:  make(map[string]*linkedPrediction),
		rationalizer: rationalizer,
	}
}

// RecordPrediction stores pred and assigns it a predictionId if one was
// not already set.
func (l *Learner) RecordPrediction(pred Prediction) (string, error) {
	if pred.PredictionID == "" {
		pred.PredictionID = fmt.Sprintf("pred_%d_%d", pred.Timestamp, l.seq.Add(1))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.predictions[pred.PredictionID] = &linkedPrediction{prediction: pred}
	return pred.PredictionID, nil
}

// ErrUnknownPrediction is returned when recording an outcome for a
// predictionId never seen by RecordPrediction.
var ErrUnknownPrediction = fmt.Errorf("outcome: unknown predictionId")

// RecordOutcome links rec to its prediction. If a Rationalizer is
// configured, its failure never blocks persisting the numeric outcome
// (§4.I).
func (l *Learner) RecordOutcome(predictionID string, rec OutcomeRecord) error {
	l.mu.Lock()
	entry, ok := l.predictions[predictionID]
	if !ok {
		l.mu.Unlock()
		return ErrUnknownPrediction
	}
	rec.PredictionID = predictionID
	entry.outcome = &rec
	pred := entry.prediction
	l.mu.Unlock()

	if l.rationalizer != nil {
		if rationale, err := l.rationalizer.Rationalize(pred, rec); err == nil {
			l.mu.Lock()
			if entry.outcome != nil {
				entry.outcome.Details = rationale
			}
			l.mu.Unlock()
		}
	}
	return nil
}

// GetPendingOutcomes returns predictions older than olderThan (measured
// from now) with no linked outcome yet.
func (l *Learner) GetPendingOutcomes(olderThan time.Duration, now time.Time) ([]Prediction, error) {
	cutoff := now.Add(-olderThan).UnixMilli()
	l.mu.RLock()
	defer l.mu.RUnlock()

	var pending []Prediction
	for _, entry := range l.predictions {
		if entry.outcome == nil && entry.prediction.Timestamp <= cutoff {
			pending = append(pending, entry.prediction)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Timestamp < pending[j].Timestamp })
	return pending, nil
}

// GetStats computes total counts and accuracy, overall and per
// predicted-verdict class (§4.I).
func (l *Learner) GetStats() (Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{Accuracy: Accuracy{PerClass: make(map[Verdict]float64)}}
	classTotals := make(map[Verdict]int)
	classCorrect := make(map[Verdict]int)
	var totalCorrect int

	for _, entry := range l.predictions {
		stats.TotalPredictions++
		if entry.outcome == nil {
			continue
		}
		stats.TotalOutcomes++
		classTotals[entry.prediction.Verdict]++
		if verdictMatchesOutcome(entry.prediction.Verdict, entry.outcome.Outcome) {
			totalCorrect++
			classCorrect[entry.prediction.Verdict]++
		}
	}

	if stats.TotalOutcomes > 0 {
		stats.Accuracy.Overall = float64(totalCorrect) / float64(stats.TotalOutcomes)
	}
	for v, total := range classTotals {
		if total > 0 {
			stats.Accuracy.PerClass[v] = float64(classCorrect[v]) / float64(total)
		}
	}
	return stats, nil
}

// GetFeatureImportance ranks each of the 29 features by its Pearson
// correlation with the binary bad-outcome target (RUG or DUMP), over
// every labeled (outcome-linked) prediction (§4.I). Features are
// returned sorted by |correlation| descending.
func (l *Learner) GetFeatureImportance() ([]FeatureImportance, error) {
	l.mu.RLock()
	var target []float64
	var features [29][]float64
	for _, entry := range l.predictions {
		if entry.outcome == nil {
			continue
		}
		for i := 0; i < 29; i++ {
			features[i] = append(features[i], entry.prediction.Features[i])
		}
		if entry.outcome.Outcome.isBadOutcome() {
			target = append(target, 1)
		} else {
			target = append(target, 0)
		}
	}
	l.mu.RUnlock()

	out := make([]FeatureImportance, 0, 29)
	if len(target) < 2 {
		// Not enough labeled data for a meaningful correlation; report
		// zero importance rather than dividing by a zero-variance sample.
		for i := 0; i < 29; i++ {
			out = append(out, FeatureImportance{FeatureIndex: i, FeatureName: featureNames[i]})
		}
		return out, nil
	}

	for i := 0; i < 29; i++ {
		corr := pearson(features[i], target)
		out = append(out, FeatureImportance{FeatureIndex: i, FeatureName: featureNames[i], Correlation: corr})
	}
	sort.Slice(out, func(i, j int) bool {
		return absF(out[i].Correlation) > absF(out[j].Correlation)
	})
	return out, nil
}

// pearson wraps gonum's Correlation, guarding the zero-variance case
// (stat.Correlation returns NaN when either series is constant).
func pearson(x, y []float64) float64 {
	if isConstant(x) || isConstant(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

func isConstant(xs []float64) bool {
	if len(xs) == 0 {
		return true
	}
	first := xs[0]
	for _, x := range xs[1:] {
		if x != first {
			return false
		}
	}
	return true
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

var _ Store = (*Learner)(nil)

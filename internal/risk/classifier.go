// Package risk implements the Risk Scorer (§4.D): a ternary-quantised
// feedforward classifier combined with a hard-coded flag layer and a
// cosine-similarity pattern library. Grounded on the teacher's
// internal/decision/evaluator.go structured-criterion style for the
// flag/gating half; the classifier and pattern matching are new
// authorship in the terse, formula-first comment register used across
// the pack's scoring code.
package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// FeatureCount is the classifier's input width, matching features.VectorSize.
const FeatureCount = 29

const (
	hiddenLayer1Size = 64
	hiddenLayer2Size = 32
	classCount       = 4
)

// layerWeights is the on-disk shape of one fully-connected layer: ternary
// weights (-1, 0, +1, stored as int8 for compactness) and full-precision
// biases. Rows are output units, columns are input units.
type layerWeights struct {
	Weights [][]int8  `json:"weights"`
	Biases  []float32 `json:"biases"`
}

// weightsFile is the on-disk schema for the full three-layer network (§9:
// "three {weights:int8[], biases:float32[]} pairs", parsed once at
// startup into typed arrays).
type weightsFile struct {
	Layers [3]layerWeights `json:"layers"`
}

// Classifier is the loaded 29->64->32->4 ternary network. Inference never
// multiplies a weight against an activation: every weight is -1, 0, or +1,
// so each unit's pre-activation is just a running sum with selective sign
// flips, per §4.D.
type Classifier struct {
	l1, l2, l3 layerWeights
}

// LoadClassifier parses a quantised weights file from disk. Returns an
// error if the file is missing or its layer shapes don't match
// 29->64->32->4; callers treat a missing file as "run in rule-based mode"
// rather than a hard failure (§4.D fallback).
func LoadClassifier(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wf weightsFile
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("risk: parsing weights file: %w", err)
	}
	c := &Classifier{l1: wf.Layers[0], l2: wf.Layers[1], l3: wf.Layers[2]}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Classifier) validate() error {
	if len(c.l1.Weights) != hiddenLayer1Size || len(c.l1.Biases) != hiddenLayer1Size {
		return fmt.Errorf("risk: layer 1 shape mismatch, want %d units", hiddenLayer1Size)
	}
	if len(c.l2.Weights) != hiddenLayer2Size || len(c.l2.Biases) != hiddenLayer2Size {
		return fmt.Errorf("risk: layer 2 shape mismatch, want %d units", hiddenLayer2Size)
	}
	if len(c.l3.Weights) != classCount || len(c.l3.Biases) != classCount {
		return fmt.Errorf("risk: layer 3 shape mismatch, want %d units", classCount)
	}
	for _, row := range c.l1.Weights {
		if len(row) != FeatureCount {
			return fmt.Errorf("risk: layer 1 input width mismatch, want %d", FeatureCount)
		}
	}
	for _, row := range c.l2.Weights {
		if len(row) != hiddenLayer1Size {
			return fmt.Errorf("risk: layer 2 input width mismatch, want %d", hiddenLayer1Size)
		}
	}
	for _, row := range c.l3.Weights {
		if len(row) != hiddenLayer2Size {
			return fmt.Errorf("risk: layer 3 input width mismatch, want %d", hiddenLayer2Size)
		}
	}
	return nil
}

// Classify runs the feature vector through the network and returns the
// softmax probability over {SAFE, SUSPICIOUS, DANGEROUS, SCAM}, in that
// class order. Pure function: same input always yields the same output
// (testable property #8).
func (c *Classifier) Classify(features [FeatureCount]float64) [classCount]float64 {
	h1 := relu(forward(c.l1, features[:]))
	h2 := relu(forward(c.l2, h1))
	logits := forward(c.l3, h2)
	return softmax(logits)
}

func forward(l layerWeights, in []float64) []float64 {
	out := make([]float64, len(l.Biases))
	for j := range out {
		acc := float64(l.Biases[j])
		row := l.Weights[j]
		for i, w := range row {
			switch {
			case w > 0:
				acc += in[i]
			case w < 0:
				acc -= in[i]
			}
		}
		out[j] = acc
	}
	return out
}

func relu(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

func softmax(x []float64) [classCount]float64 {
	var out [classCount]float64
	if len(x) != classCount {
		return out
	}
	max := x[0]
	for _, v := range x[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	exp := make([]float64, classCount)
	for i, v := range x {
		exp[i] = math.Exp(v - max)
		sum += exp[i]
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = exp[i] / sum
	}
	return out
}

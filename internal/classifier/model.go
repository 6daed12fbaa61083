// Package classifier implements a linear role classifier trained incrementally
// with stochastic gradient descent on the logistic loss.
package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

var (
	// ErrNoClasses is returned when training starts without a class set.
	ErrNoClasses = errors.New("class set is empty")
	// ErrClassesChanged is returned when a later PartialFit passes a different class set.
	ErrClassesChanged = errors.New("class set differs from the one pinned by the first call")
	// ErrUnknownLabel is returned for a training label outside the class set.
	ErrUnknownLabel = errors.New("label is not part of the class set")
	// ErrDimMismatch is returned when a matrix width disagrees with the model.
	ErrDimMismatch = errors.New("feature dimension mismatch")
)

// Model is the learned state. With two classes a single weight vector scores
// the second class; otherwise there is one vector per class.
type Model struct {
	Classes     []string    `json:"classes"`
	Coef        [][]float64 `json:"coef"`
	Intercept   []float64   `json:"intercept"`
	Dim         int         `json:"dim"`
	Epochs      int         `json:"epochs"`
	Fingerprint string      `json:"fingerprint,omitempty"`
}

// Validate checks that the shapes of the state agree.
func (m *Model) Validate() error {
	if len(m.Classes) == 0 {
		return ErrNoClasses
	}
	want := len(m.Classes)
	switch want {
	case 1:
		want = 0
	case 2:
		want = 1
	}
	if len(m.Coef) != want || len(m.Intercept) != want {
		return fmt.Errorf("expected %d weight vectors for %d classes, got %d coef and %d intercepts",
			want, len(m.Classes), len(m.Coef), len(m.Intercept))
	}
	for i, row := range m.Coef {
		if len(row) != m.Dim {
			return fmt.Errorf("weight vector %d has width %d, expected %d: %w", i, len(row), m.Dim, ErrDimMismatch)
		}
	}
	return nil
}

// PredictProba returns one probability distribution over Classes per row.
func (m *Model) PredictProba(x *vectorizer.Matrix) ([][]float64, error) {
	if x.Dim != m.Dim {
		return nil, fmt.Errorf("matrix width %d, model width %d: %w", x.Dim, m.Dim, ErrDimMismatch)
	}
	out := make([][]float64, len(x.Rows))
	for i, row := range x.Rows {
		out[i] = m.proba(row)
	}
	return out, nil
}

// PredictProbaOne returns the distribution over Classes for one vector.
// A vector without weight yields the distribution implied by the intercepts alone.
func (m *Model) PredictProbaOne(v vectorizer.Vector) []float64 {
	return m.proba(v)
}

// Predict returns the most probable class and its probability. Ties go to the
// class listed first.
func (m *Model) Predict(v vectorizer.Vector) (string, float64) {
	p := m.proba(v)
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return m.Classes[best], p[best]
}

func (m *Model) proba(v vectorizer.Vector) []float64 {
	switch len(m.Classes) {
	case 0:
		return nil
	case 1:
		return []float64{1}
	case 2:
		p := sigmoid(v.Dot(m.Coef[0]) + m.Intercept[0])
		return []float64{1 - p, p}
	}

	out := make([]float64, len(m.Classes))
	var sum float64
	for k := range m.Classes {
		out[k] = sigmoid(v.Dot(m.Coef[k]) + m.Intercept[k])
		sum += out[k]
	}
	if sum == 0 {
		for k := range out {
			out[k] = 1 / float64(len(out))
		}
		return out
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		z := math.Exp(-x)
		return 1 / (1 + z)
	}
	z := math.Exp(x)
	return z / (1 + z)
}

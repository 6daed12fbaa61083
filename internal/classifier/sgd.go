package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

const (
	DefaultAlpha  = 1e-4
	DefaultEpochs = 5
	DefaultSeed   = 42

	maxUpdate = 1e12
	minScale  = 1e-9
)

// Options configures the optimiser.
type Options struct {
	// Alpha is the L2 regularisation strength; it also drives the learning rate.
	Alpha float64
	Seed  uint64
	// NoShuffle keeps the sample order of every pass.
	NoShuffle bool
}

// SGD trains one-vs-rest logistic regressions with the "optimal" learning rate
// schedule eta = 1 / (alpha * (t0 + t)).
type SGD struct {
	opts    Options
	classes []string
	index   map[string]int
	dim     int
	models  []*binary
	t       float64
	t0      float64
	epochs  int
	rng     *rand.Rand
}

type binary struct {
	w     []float64
	scale float64
	b     float64
}

// New returns an untrained optimiser.
func New(opts Options) *SGD {
	if opts.Alpha <= 0 {
		opts.Alpha = DefaultAlpha
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	typw := math.Sqrt(1 / math.Sqrt(opts.Alpha))
	return &SGD{
		opts: opts,
		t:    1,
		t0:   1 / (typw * opts.Alpha),
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed)),
	}
}

// Classes returns the pinned class set, sorted.
func (s *SGD) Classes() []string { return slices.Clone(s.classes) }

// Fit runs epochs passes of PartialFit over the same data.
func (s *SGD) Fit(ctx context.Context, x *vectorizer.Matrix, y []string, classes []string, epochs int) error {
	if epochs <= 0 {
		epochs = DefaultEpochs
	}
	for e := 0; e < epochs; e++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.PartialFit(x, y, classes); err != nil {
			return fmt.Errorf("epoch %d: %w", e+1, err)
		}
	}
	return nil
}

// PartialFit performs one pass over the samples. The first call pins the class
// set; later calls may pass nil or the same set.
func (s *SGD) PartialFit(x *vectorizer.Matrix, y []string, classes []string) error {
	if len(x.Rows) != len(y) {
		return fmt.Errorf("%d rows but %d labels", len(x.Rows), len(y))
	}
	if err := s.pin(x.Dim, classes); err != nil {
		return err
	}

	targets := make([]int, len(y))
	for i, label := range y {
		k, ok := s.index[label]
		if !ok {
			return fmt.Errorf("%q: %w", label, ErrUnknownLabel)
		}
		targets[i] = k
	}

	order := make([]int, len(y))
	for i := range order {
		order[i] = i
	}
	if !s.opts.NoShuffle {
		s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	t := s.t
	for m, bin := range s.models {
		positive := m
		if len(s.classes) == 2 {
			positive = 1
		}
		t = s.t
		for _, i := range order {
			target := -1.0
			if targets[i] == positive {
				target = 1
			}
			bin.step(x.Rows[i], target, s.opts.Alpha, s.t0, t)
			t++
		}
	}
	s.t = t
	s.epochs++
	return nil
}

func (s *SGD) pin(dim int, classes []string) error {
	if s.classes == nil {
		if len(classes) == 0 {
			return ErrNoClasses
		}
		s.classes = distinctSorted(classes)
		s.index = make(map[string]int, len(s.classes))
		for i, c := range s.classes {
			s.index[c] = i
		}
		s.dim = dim

		n := len(s.classes)
		switch n {
		case 1:
			n = 0
		case 2:
			n = 1
		}
		s.models = make([]*binary, n)
		for i := range s.models {
			s.models[i] = &binary{w: make([]float64, dim), scale: 1}
		}
		return nil
	}

	if classes != nil && !slices.Equal(distinctSorted(classes), s.classes) {
		return ErrClassesChanged
	}
	if dim != s.dim {
		return fmt.Errorf("matrix width %d, model width %d: %w", dim, s.dim, ErrDimMismatch)
	}
	return nil
}

func (b *binary) step(x vectorizer.Vector, y, alpha, t0, t float64) {
	eta := 1 / (alpha * (t0 + t - 1))
	p := b.scale*x.Dot(b.w) + b.b

	update := -eta * logDLoss(p, y)
	update = math.Max(-maxUpdate, math.Min(maxUpdate, update))

	// The L2 shrink comes first, so the fresh update is not decayed.
	b.scale *= math.Max(0, 1-eta*alpha)
	if b.scale < minScale {
		b.fold()
	}

	if update != 0 {
		c := update / b.scale
		for k, j := range x.Indices {
			b.w[j] += c * float64(x.Values[k])
		}
		b.b += update
	}
}

func (b *binary) fold() {
	for j := range b.w {
		b.w[j] *= b.scale
	}
	b.scale = 1
}

// logDLoss is the derivative of log(1 + exp(-y*p)) with respect to p.
func logDLoss(p, y float64) float64 {
	z := p * y
	switch {
	case z > 18:
		return -y * math.Exp(-z)
	case z < -18:
		return -y
	}
	return -y / (math.Exp(z) + 1)
}

// Model returns a snapshot of the learned state.
func (s *SGD) Model() *Model {
	m := &Model{
		Classes:   slices.Clone(s.classes),
		Coef:      make([][]float64, len(s.models)),
		Intercept: make([]float64, len(s.models)),
		Dim:       s.dim,
		Epochs:    s.epochs,
	}
	for i, bin := range s.models {
		row := make([]float64, len(bin.w))
		for j, w := range bin.w {
			row[j] = w * bin.scale
		}
		m.Coef[i] = row
		m.Intercept[i] = bin.b
	}
	return m
}

func distinctSorted(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// Package flatindex is an exact nearest-neighbour index over dense float32
// vectors using squared Euclidean distance.
//
// Search compares the query with every stored row, so a query costs O(n*d).
// That is fine for corpora of a few hundred thousand rows held in one process.
package flatindex

import (
	"errors"
	"fmt"
	"slices"
)

// ErrDimMismatch is returned when a vector width disagrees with the index.
var ErrDimMismatch = errors.New("flatindex: dimension mismatch")

// Neighbor is one search hit. Distance is the squared L2 distance.
type Neighbor struct {
	Row      int
	Distance float32
}

// Index owns a row-major copy of the vectors it was built from.
type Index struct {
	dim  int
	n    int
	data []float32
}

// Build copies rows into a new index. Every row must have width dim.
func Build(dim int, rows [][]float32) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("flatindex: invalid dimension %d", dim)
	}
	data := make([]float32, 0, len(rows)*dim)
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("row %d has width %d, expected %d: %w", i, len(r), dim, ErrDimMismatch)
		}
		data = append(data, r...)
	}
	return &Index{dim: dim, n: len(rows), data: data}, nil
}

// FromFlat builds an index from a row-major buffer, which is copied.
func FromFlat(dim int, flat []float32) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("flatindex: invalid dimension %d", dim)
	}
	if len(flat)%dim != 0 {
		return nil, fmt.Errorf("buffer of %d values is not a multiple of %d: %w", len(flat), dim, ErrDimMismatch)
	}
	return &Index{dim: dim, n: len(flat) / dim, data: slices.Clone(flat)}, nil
}

func (x *Index) Dim() int { return x.dim }

func (x *Index) Len() int { return x.n }

func (x *Index) row(i int) []float32 {
	return x.data[i*x.dim : (i+1)*x.dim]
}

// Flat returns a copy of the row-major storage.
func (x *Index) Flat() []float32 { return slices.Clone(x.data) }

// Search returns the min(k, n) rows closest to q, nearest first. Equal
// distances are ordered by row number. k <= 0 yields no results.
func (x *Index) Search(q []float32, k int) ([]Neighbor, error) {
	if len(q) != x.dim {
		return nil, fmt.Errorf("query has width %d, expected %d: %w", len(q), x.dim, ErrDimMismatch)
	}
	if k <= 0 || x.n == 0 {
		return nil, nil
	}

	hits := make([]Neighbor, x.n)
	for i := 0; i < x.n; i++ {
		hits[i] = Neighbor{Row: i, Distance: squaredL2(q, x.row(i))}
	}
	slices.SortFunc(hits, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return a.Row - b.Row
	})
	return hits[:min(k, x.n)], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

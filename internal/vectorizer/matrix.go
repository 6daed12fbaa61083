package vectorizer

// Vector is a sparse document vector with ascending column indices.
type Vector struct {
	Indices []int
	Values  []float32
}

// Empty reports whether the vector carries no weight.
func (v Vector) Empty() bool { return len(v.Indices) == 0 }

// Dot returns the inner product with a dense row of weights.
func (v Vector) Dot(dense []float64) float64 {
	var s float64
	for k, j := range v.Indices {
		s += float64(v.Values[k]) * dense[j]
	}
	return s
}

// Dense expands the vector to width dim.
func (v Vector) Dense(dim int) []float32 {
	out := make([]float32, dim)
	for k, j := range v.Indices {
		out[j] = v.Values[k]
	}
	return out
}

// Matrix is a list of sparse rows of equal width.
type Matrix struct {
	Dim  int
	Rows []Vector
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.Rows) }

// Dense expands every row. Each row is freshly allocated.
func (m *Matrix) Dense() [][]float32 {
	out := make([][]float32, len(m.Rows))
	for i, r := range m.Rows {
		out[i] = r.Dense(m.Dim)
	}
	return out
}

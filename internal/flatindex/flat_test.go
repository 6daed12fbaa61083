package flatindex

import (
	"errors"
	"testing"
)

func TestSearchOrdering(t *testing.T) {
	idx, err := Build(2, [][]float32{
		{0, 0},
		{3, 4},
		{1, 0},
		{0, 1},
		{1, 1},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	hits, err := idx.Search([]float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	wantRows := []int{0, 2, 3, 4, 1}
	wantDist := []float32{0, 1, 1, 2, 25}
	if len(hits) != len(wantRows) {
		t.Fatalf("expected %d hits, got %d", len(wantRows), len(hits))
	}
	for i, h := range hits {
		if h.Row != wantRows[i] || h.Distance != wantDist[i] {
			t.Fatalf("hit %d: expected row %d at %v, got %+v", i, wantRows[i], wantDist[i], h)
		}
	}
}

func TestSearchLimits(t *testing.T) {
	idx, err := Build(1, [][]float32{{1}, {2}, {3}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		k    int
		want int
	}{
		{name: "zero", k: 0, want: 0},
		{name: "negative", k: -1, want: 0},
		{name: "fewer than rows", k: 2, want: 2},
		{name: "more than rows", k: 7, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search([]float32{0}, tt.k)
			if err != nil {
				t.Fatal(err)
			}
			if len(hits) != tt.want {
				t.Fatalf("expected %d hits, got %d", tt.want, len(hits))
			}
		})
	}
}

func TestBuildCopiesRows(t *testing.T) {
	rows := [][]float32{{1, 2}, {3, 4}}
	idx, err := Build(2, rows)
	if err != nil {
		t.Fatal(err)
	}
	rows[0][0] = 100

	if got := idx.row(0); got[0] != 1 {
		t.Fatalf("index shares memory with its input: %v", got)
	}

	flat := idx.Flat()
	flat[1] = 100
	if got := idx.row(0); got[1] != 2 {
		t.Fatalf("Flat exposes internal storage: %v", got)
	}
}

func TestDimensionErrors(t *testing.T) {
	if _, err := Build(2, [][]float32{{1, 2}, {3}}); !errors.Is(err, ErrDimMismatch) {
		t.Fatalf("expected ErrDimMismatch on build, got %v", err)
	}
	if _, err := FromFlat(3, []float32{1, 2, 3, 4}); !errors.Is(err, ErrDimMismatch) {
		t.Fatalf("expected ErrDimMismatch on flat buffer, got %v", err)
	}

	idx, _ := Build(2, [][]float32{{1, 2}})
	if _, err := idx.Search([]float32{1}, 1); !errors.Is(err, ErrDimMismatch) {
		t.Fatalf("expected ErrDimMismatch on search, got %v", err)
	}
}

func TestFromFlat(t *testing.T) {
	idx, err := FromFlat(2, []float32{0, 0, 5, 5})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 || idx.Dim() != 2 {
		t.Fatalf("unexpected shape %dx%d", idx.Len(), idx.Dim())
	}
	hits, _ := idx.Search([]float32{4, 4}, 1)
	if hits[0].Row != 1 || hits[0].Distance != 2 {
		t.Fatalf("unexpected nearest row %+v", hits[0])
	}
}

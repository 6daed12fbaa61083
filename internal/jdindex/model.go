package jdindex

import (
	"fmt"
	"slices"

	"github.com/spigell/resume-reviewer/internal/artifacts"
	"github.com/spigell/resume-reviewer/internal/classifier"
	"github.com/spigell/resume-reviewer/internal/flatindex"
	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

// Match is one retrieved corpus row. Score is the squared L2 distance to the
// query, so smaller is closer.
type Match struct {
	JobPosition string  `json:"job_position"`
	Score       float32 `json:"score"`
	Skills      string  `json:"relevant_skills,omitempty"`
}

// Model is a ready index: every component is fitted and immutable, so a Model
// is safe for concurrent use.
type Model struct {
	vec     *vectorizer.Vectorizer
	clf     *classifier.Model
	index   *flatindex.Index
	records []artifacts.Record
	meta    artifacts.Metadata
}

func newModel(b *artifacts.Bundle) (*Model, error) {
	index, err := flatindex.FromFlat(b.Vectorizer.Dim(), b.Matrix)
	if err != nil {
		return nil, fmt.Errorf("build nearest neighbour index: %w", err)
	}
	return &Model{
		vec:     b.Vectorizer,
		clf:     b.Classifier,
		index:   index,
		records: slices.Clone(b.Records),
		meta:    b.Metadata,
	}, nil
}

// Query returns the k corpus rows nearest to text, closest first. Text without
// known terms is not an error; it is compared as the zero vector.
func (m *Model) Query(text string, k int) ([]Match, error) {
	v, err := m.vec.TransformOne(text)
	if err != nil {
		return nil, err
	}
	hits, err := m.index.Search(v.Dense(m.vec.Dim()), k)
	if err != nil {
		return nil, err
	}
	out := make([]Match, len(hits))
	for i, h := range hits {
		r := m.records[h.Row]
		out[i] = Match{JobPosition: r.JobPosition, Score: h.Distance, Skills: r.Skills}
	}
	return out, nil
}

// MatchRole returns the most probable role for text and its probability.
// The probability is informative only.
func (m *Model) MatchRole(text string) (string, float64, error) {
	v, err := m.vec.TransformOne(text)
	if err != nil {
		return "", 0, err
	}
	label, conf := m.clf.Predict(v)
	return label, conf, nil
}

// roleProbabilities returns the probability of every class for text, aligned with Classes.
func (m *Model) roleProbabilities(text string) ([]float64, error) {
	v, err := m.vec.TransformOne(text)
	if err != nil {
		return nil, err
	}
	return m.clf.PredictProbaOne(v), nil
}

// Classes returns the sorted role labels known to the classifier.
func (m *Model) Classes() []string { return slices.Clone(m.clf.Classes) }

// Dim returns the vector width.
func (m *Model) Dim() int { return m.vec.Dim() }

// Rows returns the number of indexed corpus rows.
func (m *Model) Rows() int { return m.index.Len() }

// Metadata describes the build the model comes from.
func (m *Model) Metadata() artifacts.Metadata {
	md := m.meta
	md.Roles = slices.Clone(md.Roles)
	return md
}

// RowsFor returns the indexed rows labelled with role, in corpus order.
func (m *Model) RowsFor(role string) []artifacts.Record {
	var out []artifacts.Record
	for _, r := range m.records {
		if r.JobPosition == role {
			out = append(out, r)
		}
	}
	return out
}

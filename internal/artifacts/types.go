// Package artifacts persists and restores the trained job-description index:
// vectorizer state, classifier state, the dense corpus matrix, row labels and
// build metadata, versioned together in one directory.
package artifacts

import (
	"errors"
	"fmt"

	"github.com/spigell/resume-reviewer/internal/classifier"
	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

const (
	VectorizerFile = "vectorizer.json"
	ClassifierFile = "classifier.json"
	MatrixFile     = "matrix.f32"
	LabelsFile     = "labels.jsonl"
	MetadataFile   = "metadata.json"
)

var (
	// ErrNotBuilt means no artifact set exists yet.
	ErrNotBuilt = errors.New("index artifacts have not been built")
	// ErrMissingArtifact means one file of the set is absent.
	ErrMissingArtifact = errors.New("artifact file is missing")
	// ErrCorruptArtifact means a file exists but cannot be decoded or disagrees with the others.
	ErrCorruptArtifact = errors.New("artifact file is corrupt")
	// ErrFingerprintMismatch means the files were not produced by the same build.
	ErrFingerprintMismatch = fmt.Errorf("artifact fingerprints disagree: %w", ErrCorruptArtifact)
)

// Metadata describes one build.
type Metadata struct {
	TotalRecords int      `json:"total_records"`
	UniqueRoles  int      `json:"unique_roles"`
	Roles        []string `json:"roles"`
	Fingerprint  string   `json:"fingerprint"`
	Dim          int      `json:"dim"`
	BuildID      string   `json:"build_id"`
	CreatedAt    string   `json:"created_at"`
	Epochs       int      `json:"epochs"`
	MaxFeatures  int      `json:"max_features"`
}

// Record is one corpus row as kept in the labels file.
type Record struct {
	JobPosition string `json:"job_position"`
	Skills      string `json:"relevant_skills,omitempty"`
}

// Bundle is the full artifact set. Matrix is row-major with one row per record.
type Bundle struct {
	Vectorizer *vectorizer.Vectorizer
	Classifier *classifier.Model
	Matrix     []float32
	Records    []Record
	Metadata   Metadata
}

// Rows returns the number of corpus rows in the bundle.
func (b *Bundle) Rows() int { return len(b.Records) }

// Labels returns the job position of every row.
func (b *Bundle) Labels() []string { return labelsOf(b.Records) }

func labelsOf(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.JobPosition
	}
	return out
}

func (b *Bundle) validate() error {
	if b.Vectorizer == nil || !b.Vectorizer.Fitted() {
		return errors.New("bundle has no fitted vectorizer")
	}
	if b.Classifier == nil {
		return errors.New("bundle has no classifier")
	}
	if err := b.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	dim := b.Vectorizer.Dim()
	if b.Classifier.Dim != dim {
		return fmt.Errorf("classifier width %d, vectorizer width %d", b.Classifier.Dim, dim)
	}
	if len(b.Records) == 0 {
		return errors.New("bundle has no rows")
	}
	if len(b.Matrix) != len(b.Records)*dim {
		return fmt.Errorf("matrix holds %d values, expected %d rows of width %d", len(b.Matrix), len(b.Records), dim)
	}
	return nil
}

// RoleSource names where a role list was read from.
type RoleSource string

const (
	RoleSourceMetadata   RoleSource = "metadata"
	RoleSourceLabels     RoleSource = "labels"
	RoleSourceClassifier RoleSource = "classifier"
)

// RoleSet is the sorted list of known roles and its origin.
type RoleSet struct {
	Roles  []string   `json:"roles"`
	Source RoleSource `json:"source"`
}

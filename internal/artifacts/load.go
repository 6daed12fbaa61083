package artifacts

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spigell/resume-reviewer/internal/classifier"
	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

func load(dir string) (*Bundle, error) {
	md, err := loadMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	vb, err := readFile(filepath.Join(dir, VectorizerFile))
	if err != nil {
		return nil, err
	}
	vec := &vectorizer.Vectorizer{}
	if err := json.Unmarshal(vb, vec); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", VectorizerFile, ErrCorruptArtifact, err)
	}

	clf, err := loadClassifier(filepath.Join(dir, ClassifierFile))
	if err != nil {
		return nil, err
	}

	if md.Fingerprint != vec.Fingerprint() || clf.Fingerprint != vec.Fingerprint() {
		return nil, fmt.Errorf("vectorizer %.12s, classifier %.12s, metadata %.12s: %w",
			vec.Fingerprint(), clf.Fingerprint, md.Fingerprint, ErrFingerprintMismatch)
	}
	if clf.Dim != vec.Dim() {
		return nil, fmt.Errorf("%s: width %d, vectorizer width %d: %w", ClassifierFile, clf.Dim, vec.Dim(), ErrCorruptArtifact)
	}
	if md.Dim != 0 && md.Dim != vec.Dim() {
		return nil, fmt.Errorf("%s: dim %d, vectorizer width %d: %w", MetadataFile, md.Dim, vec.Dim(), ErrCorruptArtifact)
	}

	records, err := loadRecords(filepath.Join(dir, LabelsFile))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no rows: %w", LabelsFile, ErrCorruptArtifact)
	}

	matrix, err := loadMatrix(filepath.Join(dir, MatrixFile), len(records), vec.Dim())
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Vectorizer: vec,
		Classifier: clf,
		Matrix:     matrix,
		Records:    records,
		Metadata:   md,
	}, nil
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrMissingArtifact)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return b, nil
}

func loadMetadata(path string) (Metadata, error) {
	b, err := readFile(path)
	if err != nil {
		return Metadata{}, err
	}
	var md Metadata
	if err := json.Unmarshal(b, &md); err != nil {
		return Metadata{}, fmt.Errorf("%s: %w: %w", MetadataFile, ErrCorruptArtifact, err)
	}
	return md, nil
}

func loadClassifier(path string) (*classifier.Model, error) {
	b, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var m classifier.Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", ClassifierFile, ErrCorruptArtifact, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", ClassifierFile, ErrCorruptArtifact, err)
	}
	return &m, nil
}

func loadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", LabelsFile, ErrMissingArtifact)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open labels file %s: %w", path, err)
	}
	defer f.Close()

	var out []Record
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var r Record
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w: %w", LabelsFile, len(out)+1, ErrCorruptArtifact, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func loadMatrix(path string, rows, dim int) ([]float32, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", MatrixFile, ErrMissingArtifact)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open matrix file %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat matrix file %s: %w", path, err)
	}
	expected := int64(rows) * int64(dim) * 4
	if st.Size() != expected {
		return nil, fmt.Errorf("%s: size %d, expected %d for %d rows of width %d: %w",
			MatrixFile, st.Size(), expected, rows, dim, ErrCorruptArtifact)
	}

	out := make([]float32, rows*dim)
	if err := binary.Read(bufio.NewReader(io.LimitReader(f, expected)), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", MatrixFile, ErrCorruptArtifact, err)
	}
	return out, nil
}

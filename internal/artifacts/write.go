package artifacts

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spigell/resume-reviewer/internal/classifier"
	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

// write stores every artifact file in dir.
func write(dir string, vec *vectorizer.Vectorizer, clf *classifier.Model, matrix []float32, records []Record, md Metadata) error {
	vb, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("cannot encode vectorizer: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, VectorizerFile), vb, 0o644); err != nil {
		return fmt.Errorf("cannot write vectorizer: %w", err)
	}

	cb, err := json.Marshal(clf)
	if err != nil {
		return fmt.Errorf("cannot encode classifier: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ClassifierFile), cb, 0o644); err != nil {
		return fmt.Errorf("cannot write classifier: %w", err)
	}

	if err := writeRecords(filepath.Join(dir, LabelsFile), records); err != nil {
		return err
	}

	mf, err := os.Create(filepath.Join(dir, MatrixFile))
	if err != nil {
		return fmt.Errorf("cannot create matrix file: %w", err)
	}
	bw := bufio.NewWriter(mf)
	if err := binary.Write(bw, binary.LittleEndian, matrix); err != nil {
		_ = mf.Close()
		return fmt.Errorf("cannot write matrix: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = mf.Close()
		return fmt.Errorf("cannot write matrix: %w", err)
	}
	if err := mf.Close(); err != nil {
		return err
	}

	// metadata goes last: its presence marks a complete set
	mb, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), mb, 0o644); err != nil {
		return fmt.Errorf("cannot write metadata: %w", err)
	}
	return nil
}

func writeRecords(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create labels file: %w", err)
	}
	bw := bufio.NewWriter(f)
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := bw.Write(line); err != nil {
			_ = f.Close()
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

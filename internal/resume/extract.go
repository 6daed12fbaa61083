// Package resume turns uploaded resume files into plain text.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/spigell/resume-reviewer/internal/textclean"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither PDF nor plain text.
	ErrUnsupportedFormat = errors.New("unsupported resume format: only .pdf and .txt are allowed")
	// ErrNoText means the document was readable but yielded no text.
	ErrNoText = errors.New("no text could be extracted from the resume")
)

// Document is extracted resume text. Pages is zero for plain text input.
type Document struct {
	Text  string
	Pages int
}

// ReadFile extracts the resume stored at path, choosing the reader by extension.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read resume: %w", err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse extracts text from data. The filename only selects the format.
func Parse(filename string, data []byte) (Document, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return ExtractPDF(data)
	case ".txt", ".md", "":
		text := textclean.CleanDocument(string(data))
		if text == "" {
			return Document{}, ErrNoText
		}
		return Document{Text: text}, nil
	default:
		return Document{}, ErrUnsupportedFormat
	}
}

// ExtractPDF reads the whole document as plain text and falls back to page by
// page row extraction when that yields nothing.
func ExtractPDF(data []byte) (Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}
	doc := Document{Pages: r.NumPage()}

	text, plainErr := recovered(func() (string, error) { return plainText(r) })
	if doc.Text = textclean.CleanDocument(text); doc.Text != "" {
		return doc, nil
	}

	text, rowsErr := recovered(func() (string, error) { return rowText(r) })
	if doc.Text = textclean.CleanDocument(text); doc.Text != "" {
		return doc, nil
	}

	if err := errors.Join(plainErr, rowsErr); err != nil {
		return doc, fmt.Errorf("%w: %w", ErrNoText, err)
	}
	return doc, ErrNoText
}

func plainText(r *pdf.Reader) (string, error) {
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rd); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func rowText(r *pdf.Reader) (string, error) {
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return b.String(), fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			for _, t := range row.Content {
				b.WriteString(t.S)
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// recovered runs fn and turns a panic into an error; the pdf reader panics on
// some malformed streams.
func recovered(fn func() (string, error)) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader: %v", p)
		}
	}()
	return fn()
}

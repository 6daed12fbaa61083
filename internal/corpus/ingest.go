package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/logger"
	"github.com/spigell/resume-reviewer/internal/textclean"
)

const (
	// DefaultChunkSize bounds the number of rows held by one chunk.
	DefaultChunkSize = 2000
	// DefaultSeed makes sampling reproducible.
	DefaultSeed = 42
)

// Options controls corpus ingestion.
type Options struct {
	// ChunkSize is the number of rows read and filtered at a time.
	ChunkSize int
	// SampleSize, when positive and smaller than the surviving row count,
	// reduces the table to a uniform random sample.
	SampleSize int
	Seed       uint64
	// Language is the filter applied to the required columns.
	// A filter for textclean.DefaultLanguage is used when nil.
	Language              *textclean.LanguageFilter
	DisableLanguageFilter bool
	// Workers bounds language detection concurrency within a chunk.
	Workers int
	Logger  *zap.Logger
}

// Stats summarises an ingestion run.
type Stats struct {
	Chunks        int
	SkippedChunks int
	Read          int
	Malformed     int
	Kept          int
}

// IngestFile opens path and ingests it.
func IngestFile(ctx context.Context, path string, opts Options) (*Table, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	return Ingest(ctx, f, opts)
}

// Ingest reads a CSV corpus with a header row in chunks, runs the filter steps
// over every chunk and concatenates the surviving rows in their original order.
// ErrEmptyCorpus is returned when nothing survives.
func Ingest(ctx context.Context, r io.Reader, opts Options) (*Table, Stats, error) {
	log := logger.OrNop(opts.Logger)
	var stats Stats

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, ErrEmptyCorpus
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read corpus header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	steps := defaultSteps(opts)
	for _, st := range Describe(steps) {
		log.Debug("filter configured",
			zap.String("name", st.Name),
			zap.Bool("enabled", st.Enabled),
			zap.String("reason", st.Reason),
		)
	}
	out := NewTable(header)

	for eof := false; !eof; {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		chunk := NewTable(header)
		for chunk.Len() < chunkSize {
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				eof = true
				break
			}
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					stats.Malformed++
					continue
				}
				return nil, stats, fmt.Errorf("read corpus: %w", err)
			}
			if len(rec) != len(header) {
				stats.Malformed++
				continue
			}
			stats.Read++
			chunk.Rows = append(chunk.Rows, Row(rec))
		}
		if chunk.Len() == 0 {
			continue
		}

		stats.Chunks++
		kept, err := Run(ctx, log, steps, chunk)
		if err != nil {
			return nil, stats, fmt.Errorf("chunk %d: %w", stats.Chunks, err)
		}
		if kept == nil {
			stats.SkippedChunks++
			continue
		}
		if err := out.Append(kept); err != nil {
			return nil, stats, err
		}

		log.Info("processed chunk",
			zap.Int("chunk", stats.Chunks),
			zap.Int("rows_read", stats.Read),
			zap.Int("rows_kept", out.Len()),
		)
	}

	if out.Len() == 0 {
		return nil, stats, ErrEmptyCorpus
	}

	if opts.SampleSize > 0 && opts.SampleSize < out.Len() {
		seed := opts.Seed
		if seed == 0 {
			seed = DefaultSeed
		}
		out = Sample(out, opts.SampleSize, seed)
	}
	stats.Kept = out.Len()

	log.Info("corpus ingested",
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped_chunks", stats.SkippedChunks),
		zap.Int("malformed_rows", stats.Malformed),
		zap.Int("total_valid_records", stats.Kept),
	)

	return out, stats, nil
}

func defaultSteps(opts Options) []Filter {
	lang := opts.Language
	if lang == nil {
		lang = textclean.NewLanguageFilter(textclean.DefaultLanguage)
	}

	steps := []Filter{
		NewClean(),
		NewRequiredColumns(ColumnPosition, ColumnSkills),
		NewLanguage(lang, opts.Workers, ColumnPosition, ColumnSkills),
	}
	if opts.DisableLanguageFilter {
		DisableByName(steps, "language", "disabled by configuration")
	}
	return steps
}

// Sample returns a table with n rows drawn uniformly without replacement.
// The same seed always selects the same rows; selected rows keep their relative order.
func Sample(t *Table, n int, seed uint64) *Table {
	if n >= t.Len() {
		return t
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	picked := rng.Perm(t.Len())[:n]
	slices.Sort(picked)

	out := NewTable(t.Columns)
	out.Rows = make([]Row, 0, n)
	for _, i := range picked {
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

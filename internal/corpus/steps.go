package corpus

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-reviewer/internal/textclean"
)

type cleanFilter struct {
	baseFilter
}

// NewClean creates a step that cleans every cell of a chunk in place.
func NewClean() Filter {
	return &cleanFilter{}
}

func (f *cleanFilter) Name() string { return "clean" }

func (f *cleanFilter) Apply(_ context.Context, _ *zap.Logger, chunk *Table) (*Table, Step, error) {
	for _, row := range chunk.Rows {
		for i := range row {
			row[i] = textclean.Clean(row[i])
		}
	}
	n := chunk.Len()
	return chunk, Step{Initial: n, Left: n}, nil
}

type requiredColumnsFilter struct {
	baseFilter
	columns []string
}

// NewRequiredColumns creates a step that skips chunks lacking any of the columns.
func NewRequiredColumns(columns ...string) Filter {
	return &requiredColumnsFilter{columns: columns}
}

func (f *requiredColumnsFilter) Name() string { return "required_columns" }

func (f *requiredColumnsFilter) Apply(_ context.Context, logger *zap.Logger, chunk *Table) (*Table, Step, error) {
	n := chunk.Len()
	if !chunk.HasColumns(f.columns...) {
		logger.Warn("skipping chunk without required columns",
			zap.Strings("required", f.columns),
			zap.Strings("columns", chunk.Columns),
			zap.Int("rows", n),
		)
		return nil, Step{Initial: n, Dropped: n, Skipped: true}, nil
	}
	return chunk, Step{Initial: n, Left: n}, nil
}

type languageFilter struct {
	baseFilter
	filter  *textclean.LanguageFilter
	columns []string
	workers int
}

// NewLanguage creates a step keeping rows whose columns all pass the language filter.
// Detection runs on up to workers goroutines; row order is preserved.
func NewLanguage(filter *textclean.LanguageFilter, workers int, columns ...string) Filter {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &languageFilter{filter: filter, columns: columns, workers: workers}
}

func (f *languageFilter) Name() string { return "language" }

func (f *languageFilter) Apply(ctx context.Context, _ *zap.Logger, chunk *Table) (*Table, Step, error) {
	initial := chunk.Len()

	idx := make([]int, 0, len(f.columns))
	for _, c := range f.columns {
		i := chunk.ColumnIndex(c)
		if i < 0 {
			return nil, Step{Initial: initial, Dropped: initial, Skipped: true}, nil
		}
		idx = append(idx, i)
	}

	keep := make([]bool, initial)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for r, row := range chunk.Rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for _, i := range idx {
				if !f.filter.Match(row[i]) {
					return nil
				}
			}
			keep[r] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Step{}, err
	}

	dropped := chunk.Keep(keep)
	return chunk, Step{Initial: initial, Dropped: dropped, Left: chunk.Len()}, nil
}

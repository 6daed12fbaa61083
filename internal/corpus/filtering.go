package corpus

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Filter represents a single step applied to every chunk read from the corpus.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, logger *zap.Logger, chunk *Table) (*Table, Step, error)
}

// Step describes the result of executing a filtering step on a chunk.
type Step struct {
	Initial int
	Dropped int
	Left    int
	// Skipped is set when the step rejected the whole chunk.
	Skipped bool
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		st := Status{Name: step.Name(), Enabled: step.IsEnabled()}
		if r, ok := step.(interface{ DisabledReason() string }); ok {
			st.Reason = r.DisabledReason()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// Run executes the enabled filters sequentially over one chunk. A nil table
// is returned when a step skipped the chunk.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, chunk *Table) (*Table, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, info, err := step.Apply(ctx, logger, chunk)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
			zap.Bool("chunk_skipped", info.Skipped),
		)

		if info.Skipped || next == nil {
			return nil, nil
		}
		chunk = next
	}

	return chunk, nil
}

type baseFilter struct {
	disabled bool
	reason   string
}

func (f *baseFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *baseFilter) IsEnabled() bool { return !f.disabled }

func (f *baseFilter) DisabledReason() string { return f.reason }

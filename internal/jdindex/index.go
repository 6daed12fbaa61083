// Package jdindex is the job-description index: it builds a TF-IDF space, a
// role classifier and an exact nearest-neighbour index from a CSV corpus,
// persists them, and answers role and similarity queries.
package jdindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/artifacts"
	"github.com/spigell/resume-reviewer/internal/classifier"
	"github.com/spigell/resume-reviewer/internal/corpus"
	"github.com/spigell/resume-reviewer/internal/flatindex"
	"github.com/spigell/resume-reviewer/internal/logger"
	"github.com/spigell/resume-reviewer/internal/textclean"
	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

// ErrNotReady is returned by query methods before a successful build or load.
var ErrNotReady = errors.New("index is not ready: build or load it first")

// State is the lifecycle position of an Index.
type State int

const (
	StateUnbuilt State = iota
	StateBuilt
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateLoaded:
		return "loaded"
	default:
		return "unbuilt"
	}
}

// Stage names a build step.
type Stage string

const (
	StageIngest Stage = "ingest"
	StageFit    Stage = "fit"
	StageSave   Stage = "save"
)

// StageError reports the build step that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("index build failed during %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Option customises an Index.
type Option func(*Index)

// WithDetector replaces the language detector used during ingestion.
func WithDetector(d textclean.Detector) Option {
	return func(x *Index) { x.detector = d }
}

// Index owns the current Model. Builds and loads swap the model atomically;
// queries may run concurrently with them.
type Index struct {
	cfg      Config
	store    *artifacts.Store
	logger   *zap.Logger
	detector textclean.Detector

	mu    sync.RWMutex
	state State
	model *Model

	// loading serialises loads triggered by Model.
	loading sync.Mutex
}

// New returns an unbuilt index using cfg.
func New(cfg Config, log *zap.Logger, opts ...Option) *Index {
	cfg = cfg.withDefaults()
	log = logger.WithIndexFields(log, cfg.ArtifactDir, "")
	x := &Index{
		cfg:    cfg,
		store:  artifacts.NewStore(cfg.ArtifactDir, log),
		logger: log,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Config returns the effective configuration.
func (x *Index) Config() Config { return x.cfg }

// Store exposes the artifact store backing the index.
func (x *Index) Store() *artifacts.Store { return x.store }

// State returns the lifecycle state.
func (x *Index) State() State {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state
}

// Model returns the current ready model. An unbuilt index loads artifacts
// that appeared on disk since it was created, so a long-running server picks
// up a build made by another process.
func (x *Index) Model() (*Model, error) {
	if m := x.current(); m != nil {
		return m, nil
	}
	if !x.store.Exists() {
		return nil, ErrNotReady
	}

	x.loading.Lock()
	defer x.loading.Unlock()
	if m := x.current(); m != nil {
		return m, nil
	}

	m, err := x.Load(context.Background())
	if err != nil {
		x.logger.Debug("artifacts present but not loadable", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	x.logger.Info("index loaded on first use", zap.Int("rows", m.Rows()))
	return m, nil
}

func (x *Index) current() *Model {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.model
}

// Query returns the k nearest corpus rows for text.
func (x *Index) Query(text string, k int) ([]Match, error) {
	m, err := x.Model()
	if err != nil {
		return nil, err
	}
	return m.Query(text, k)
}

// MatchRole returns the most probable role for text.
func (x *Index) MatchRole(text string) (string, float64, error) {
	m, err := x.Model()
	if err != nil {
		return "", 0, err
	}
	return m.MatchRole(text)
}

// Roles lists the known roles from the persisted artifacts.
func (x *Index) Roles(ctx context.Context) (artifacts.RoleSet, error) {
	return x.store.Roles(ctx)
}

// Load restores the model from the artifact directory. On failure the current
// state is kept.
func (x *Index) Load(ctx context.Context) (*Model, error) {
	b, err := x.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	m, err := newModel(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", artifacts.ErrCorruptArtifact, err)
	}

	x.swap(m, StateLoaded)
	return m, nil
}

// BuildFromCSV ingests the corpus at path, fits every component, saves the
// artifacts and makes the result current. Errors are *StageError values; on
// failure nothing is persisted and the current state is kept.
func (x *Index) BuildFromCSV(ctx context.Context, path string) (*Model, error) {
	started := time.Now()
	x.logger.Info("building index", zap.String("corpus", path))

	lang := textclean.NewLanguageFilter(x.cfg.Language)
	if x.detector != nil {
		lang.Detector = x.detector
	}
	table, stats, err := corpus.IngestFile(ctx, path, corpus.Options{
		ChunkSize:             x.cfg.ChunkSize,
		SampleSize:            x.cfg.SampleSize,
		Seed:                  x.cfg.Seed,
		Language:              lang,
		DisableLanguageFilter: x.cfg.DisableLanguageFilter,
		Workers:               x.cfg.Workers,
		Logger:                x.logger,
	})
	if err != nil {
		return nil, &StageError{Stage: StageIngest, Err: err}
	}

	bundle, err := x.fit(ctx, table)
	if err != nil {
		return nil, &StageError{Stage: StageFit, Err: err}
	}

	md, err := x.store.Save(ctx, bundle)
	if err != nil {
		return nil, &StageError{Stage: StageSave, Err: err}
	}
	bundle.Metadata = md

	m, err := newModel(bundle)
	if err != nil {
		return nil, &StageError{Stage: StageFit, Err: err}
	}
	x.swap(m, StateBuilt)

	logger.WithIndexFields(x.logger, "", md.Fingerprint).Info("index built",
		zap.Int("rows", stats.Kept),
		zap.Int("roles", md.UniqueRoles),
		zap.Int("dim", md.Dim),
		zap.Duration("took", time.Since(started)),
	)
	return m, nil
}

func (x *Index) fit(ctx context.Context, table *corpus.Table) (*artifacts.Bundle, error) {
	positions, err := table.Column(corpus.ColumnPosition)
	if err != nil {
		return nil, err
	}
	skills, err := table.Column(corpus.ColumnSkills)
	if err != nil {
		return nil, err
	}

	vec := vectorizer.New(vectorizer.Options{
		MaxFeatures: x.cfg.MaxFeatures,
		Language:    x.cfg.Language,
		Stem:        x.cfg.Stem,
	})
	matrix, err := vec.Fit(skills)
	if err != nil {
		return nil, fmt.Errorf("vectorize corpus: %w", err)
	}
	x.logger.Debug("vocabulary fitted", zap.Int("terms", vec.Dim()), zap.Int("rows", matrix.Len()))

	sgd := classifier.New(classifier.Options{Alpha: x.cfg.Alpha, Seed: x.cfg.Seed})
	if err := sgd.Fit(ctx, matrix, positions, positions, x.cfg.Epochs); err != nil {
		return nil, fmt.Errorf("train classifier: %w", err)
	}
	model := sgd.Model()
	x.logger.Debug("classifier trained", zap.Int("classes", len(model.Classes)), zap.Int("epochs", model.Epochs))

	index, err := flatindex.Build(vec.Dim(), matrix.Dense())
	if err != nil {
		return nil, fmt.Errorf("build search index: %w", err)
	}

	records := make([]artifacts.Record, len(positions))
	for i := range positions {
		records[i] = artifacts.Record{JobPosition: positions[i], Skills: skills[i]}
	}

	return &artifacts.Bundle{
		Vectorizer: vec,
		Classifier: model,
		Matrix:     index.Flat(),
		Records:    records,
		Metadata:   artifacts.Metadata{Epochs: x.cfg.Epochs},
	}, nil
}

func (x *Index) swap(m *Model, state State) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.model = m
	x.state = state
}

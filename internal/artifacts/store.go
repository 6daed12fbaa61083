package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/logger"
)

const lockRetryDelay = 100 * time.Millisecond

// Store reads and writes the artifact set kept in Dir. Writers take an
// exclusive lock on Dir+".lock"; readers take a shared one.
type Store struct {
	Dir    string
	Logger *zap.Logger
}

// NewStore returns a store rooted at dir. The path is cleaned so that a
// trailing separator still yields a sibling temp dir and lock file.
func NewStore(dir string, log *zap.Logger) *Store {
	if dir != "" {
		dir = filepath.Clean(dir)
	}
	return &Store{Dir: dir, Logger: log}
}

func (s *Store) log(fingerprint string) *zap.Logger {
	return logger.WithIndexFields(s.Logger, s.Dir, fingerprint)
}

func (s *Store) path(name string) string { return filepath.Join(s.Dir, name) }

// Exists reports whether an artifact directory is present.
func (s *Store) Exists() bool {
	st, err := os.Stat(s.Dir)
	return err == nil && st.IsDir()
}

// Save writes the bundle to a temporary directory next to Dir and swaps it in.
// The previous set stays in place when any step fails. Metadata fields derived
// from the bundle are filled in and returned.
func (s *Store) Save(ctx context.Context, b *Bundle) (Metadata, error) {
	if err := b.validate(); err != nil {
		return Metadata{}, fmt.Errorf("invalid bundle: %w", err)
	}

	md := b.Metadata
	md.Fingerprint = b.Vectorizer.Fingerprint()
	md.Dim = b.Vectorizer.Dim()
	md.TotalRecords = b.Rows()
	md.Roles = slices.Clone(b.Classifier.Classes)
	md.UniqueRoles = len(md.Roles)
	md.MaxFeatures = b.Vectorizer.Options().MaxFeatures
	if md.Epochs == 0 {
		md.Epochs = b.Classifier.Epochs
	}
	if md.BuildID == "" {
		md.BuildID = uuid.NewString()
	}
	if md.CreatedAt == "" {
		md.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	clf := *b.Classifier
	clf.Fingerprint = md.Fingerprint

	parent := filepath.Dir(s.Dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return Metadata{}, fmt.Errorf("cannot create artifact parent dir %s: %w", parent, err)
	}

	unlock, err := s.lock(ctx, true)
	if err != nil {
		return Metadata{}, err
	}
	defer unlock()

	tmp, err := os.MkdirTemp(parent, filepath.Base(s.Dir)+".tmp-")
	if err != nil {
		return Metadata{}, fmt.Errorf("cannot create temp artifact dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := write(tmp, b.Vectorizer, &clf, b.Matrix, b.Records, md); err != nil {
		return Metadata{}, err
	}
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	if err := AtomicSwap(tmp, s.Dir); err != nil {
		return Metadata{}, fmt.Errorf("cannot swap artifact dir: %w", err)
	}

	s.log(md.Fingerprint).Info("artifacts saved",
		zap.String("build_id", md.BuildID),
		zap.Int("rows", md.TotalRecords),
		zap.Int("dim", md.Dim),
		zap.Int("roles", md.UniqueRoles),
	)
	return md, nil
}

// Load reads and cross-checks the full artifact set.
func (s *Store) Load(ctx context.Context) (*Bundle, error) {
	if !s.Exists() {
		return nil, fmt.Errorf("%s: %w", s.Dir, ErrNotBuilt)
	}

	unlock, err := s.lock(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := load(s.Dir)
	if err != nil {
		return nil, err
	}

	fromLabels := distinct(b.Labels())
	if !slices.Equal(fromLabels, b.Classifier.Classes) {
		s.log("").Debug("labels file and classifier disagree on roles, using classifier classes",
			zap.Int("label_roles", len(fromLabels)),
			zap.Int("classifier_roles", len(b.Classifier.Classes)),
		)
	}
	b.Metadata.Roles = slices.Clone(b.Classifier.Classes)
	b.Metadata.UniqueRoles = len(b.Metadata.Roles)

	s.log(b.Metadata.Fingerprint).Info("artifacts loaded",
		zap.Int("rows", b.Rows()),
		zap.Int("dim", b.Vectorizer.Dim()),
	)
	return b, nil
}

// Roles returns the known roles without loading the whole set. Sources are
// tried in order: metadata, labels file, classifier. ErrNotBuilt is returned
// when none of them exists.
func (s *Store) Roles(ctx context.Context) (RoleSet, error) {
	if !s.Exists() {
		return RoleSet{}, fmt.Errorf("%s: %w", s.Dir, ErrNotBuilt)
	}

	unlock, err := s.lock(ctx, false)
	if err != nil {
		return RoleSet{}, err
	}
	defer unlock()

	sources := []struct {
		source RoleSource
		read   func() ([]string, error)
	}{
		{RoleSourceMetadata, func() ([]string, error) {
			md, err := loadMetadata(s.path(MetadataFile))
			if err != nil {
				return nil, err
			}
			return md.Roles, nil
		}},
		{RoleSourceLabels, func() ([]string, error) {
			records, err := loadRecords(s.path(LabelsFile))
			if err != nil {
				return nil, err
			}
			return labelsOf(records), nil
		}},
		{RoleSourceClassifier, func() ([]string, error) {
			m, err := loadClassifier(s.path(ClassifierFile))
			if err != nil {
				return nil, err
			}
			return m.Classes, nil
		}},
	}

	var errs []error
	for _, src := range sources {
		roles, err := src.read()
		if errors.Is(err, ErrMissingArtifact) {
			continue
		}
		if err != nil {
			s.log("").Debug("cannot read roles", zap.String("source", string(src.source)), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if len(roles) == 0 {
			continue
		}
		return RoleSet{Roles: distinct(roles), Source: src.source}, nil
	}

	if len(errs) == 0 {
		return RoleSet{}, fmt.Errorf("%s: %w", s.Dir, ErrNotBuilt)
	}
	return RoleSet{}, fmt.Errorf("cannot read roles: %w", errors.Join(errs...))
}

func (s *Store) lock(ctx context.Context, exclusive bool) (func(), error) {
	lockPath := s.Dir + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create lock dir: %w", err)
	}
	l := flock.New(lockPath)

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = l.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = l.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot acquire artifact lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("artifact lock %s is held by another process", lockPath)
	}
	return func() { _ = l.Unlock() }, nil
}

// AtomicSwap replaces destDir with srcDir by renaming. The previous destDir is
// restored if the final rename fails.
func AtomicSwap(srcDir, destDir string) error {
	backup := destDir + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(srcDir, destDir); err != nil {
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, destDir)
		}
		return err
	}
	_ = os.RemoveAll(backup)
	return nil
}

func distinct(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

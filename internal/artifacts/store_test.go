package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-reviewer/internal/classifier"
	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()

	texts := []string{
		"python sql statistics",
		"python pandas statistics",
		"wrench pipes plumbing",
		"pipes fittings plumbing",
	}
	labels := []string{"Data Scientist", "Data Scientist", "Plumber", "Plumber"}

	vec := vectorizer.New(vectorizer.Options{})
	x, err := vec.Fit(texts)
	if err != nil {
		t.Fatalf("Fit vectorizer: %v", err)
	}
	sgd := classifier.New(classifier.Options{})
	if err := sgd.Fit(context.Background(), x, labels, labels, 3); err != nil {
		t.Fatalf("Fit classifier: %v", err)
	}

	var matrix []float32
	for _, row := range x.Dense() {
		matrix = append(matrix, row...)
	}
	records := make([]Record, len(labels))
	for i := range labels {
		records[i] = Record{JobPosition: labels[i], Skills: texts[i]}
	}
	return &Bundle{
		Vectorizer: vec,
		Classifier: sgd.Model(),
		Matrix:     matrix,
		Records:    records,
	}
}

func saved(t *testing.T) (*Store, *Bundle, Metadata) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "artifacts"), nil)
	b := testBundle(t)
	md, err := store.Save(context.Background(), b)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return store, b, md
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, b, md := saved(t)

	if md.BuildID == "" || md.CreatedAt == "" {
		t.Fatalf("metadata is missing build identity: %+v", md)
	}
	if md.TotalRecords != 4 || md.UniqueRoles != 2 || md.Epochs != 3 || md.Dim != b.Vectorizer.Dim() {
		t.Fatalf("unexpected metadata %+v", md)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Vectorizer.Fingerprint() != b.Vectorizer.Fingerprint() {
		t.Fatalf("fingerprint changed across save/load")
	}
	if !slices.Equal(loaded.Records, b.Records) {
		t.Fatalf("records changed: %v", loaded.Records)
	}
	if !slices.Equal(loaded.Matrix, b.Matrix) {
		t.Fatalf("matrix changed across save/load")
	}
	for k := range b.Classifier.Coef {
		if !slices.Equal(loaded.Classifier.Coef[k], b.Classifier.Coef[k]) {
			t.Fatalf("classifier weights changed for class %d", k)
		}
	}
	if loaded.Metadata.BuildID != md.BuildID {
		t.Fatalf("build id changed: %s vs %s", loaded.Metadata.BuildID, md.BuildID)
	}

	v1, _ := b.Vectorizer.TransformOne("python statistics")
	v2, _ := loaded.Vectorizer.TransformOne("python statistics")
	if !slices.Equal(b.Classifier.PredictProbaOne(v1), loaded.Classifier.PredictProbaOne(v2)) {
		t.Fatalf("loaded model predicts differently")
	}
}

func TestSaveReplacesPreviousSet(t *testing.T) {
	store, _, first := saved(t)

	second, err := store.Save(context.Background(), testBundle(t))
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if second.BuildID == first.BuildID {
		t.Fatalf("expected a new build id")
	}

	entries, err := os.ReadDir(filepath.Dir(store.Dir))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"artifacts", "artifacts.lock"}) {
		t.Fatalf("unexpected leftovers next to the artifact dir: %v", names)
	}
}

func TestFailedSaveKeepsPreviousSet(t *testing.T) {
	store, _, md := saved(t)

	broken := testBundle(t)
	broken.Matrix = broken.Matrix[:len(broken.Matrix)-1]
	if _, err := store.Save(context.Background(), broken); err == nil {
		t.Fatalf("expected Save to reject an inconsistent bundle")
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metadata.BuildID != md.BuildID {
		t.Fatalf("previous artifacts were replaced")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, dir string)
		wantErr error
	}{
		{
			name: "missing matrix",
			mutate: func(t *testing.T, dir string) {
				mustRemove(t, filepath.Join(dir, MatrixFile))
			},
			wantErr: ErrMissingArtifact,
		},
		{
			name: "missing metadata",
			mutate: func(t *testing.T, dir string) {
				mustRemove(t, filepath.Join(dir, MetadataFile))
			},
			wantErr: ErrMissingArtifact,
		},
		{
			name: "truncated matrix",
			mutate: func(t *testing.T, dir string) {
				path := filepath.Join(dir, MatrixFile)
				st, err := os.Stat(path)
				if err != nil {
					t.Fatal(err)
				}
				if err := os.Truncate(path, st.Size()-4); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: ErrCorruptArtifact,
		},
		{
			name: "unparsable classifier",
			mutate: func(t *testing.T, dir string) {
				mustWrite(t, filepath.Join(dir, ClassifierFile), []byte("{not json"))
			},
			wantErr: ErrCorruptArtifact,
		},
		{
			name: "fingerprint mismatch",
			mutate: func(t *testing.T, dir string) {
				path := filepath.Join(dir, MetadataFile)
				md, err := loadMetadata(path)
				if err != nil {
					t.Fatal(err)
				}
				md.Fingerprint = "0000"
				b, _ := json.Marshal(md)
				mustWrite(t, path, b)
			},
			wantErr: ErrFingerprintMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, _ := saved(t)
			tt.mutate(t, store.Dir)

			_, err := store.Load(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if errors.Is(tt.wantErr, ErrMissingArtifact) && errors.Is(err, ErrCorruptArtifact) {
				t.Fatalf("missing file reported as corrupt: %v", err)
			}
		})
	}
}

func TestFingerprintMismatchIsCorrupt(t *testing.T) {
	if !errors.Is(ErrFingerprintMismatch, ErrCorruptArtifact) {
		t.Fatalf("fingerprint mismatch must be a corrupt artifact")
	}
}

func TestLoadNotBuilt(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nothing"), nil)
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
}

func TestLoadPrefersClassifierClasses(t *testing.T) {
	store, _, _ := saved(t)
	core, observed := observer.New(zapcore.DebugLevel)
	store.Logger = zap.New(core)

	records := []Record{
		{JobPosition: "Data Scientist"},
		{JobPosition: "Ghost"},
		{JobPosition: "Plumber"},
		{JobPosition: "Plumber"},
	}
	if err := writeRecords(filepath.Join(store.Dir, LabelsFile), records); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(loaded.Metadata.Roles, []string{"Data Scientist", "Plumber"}) {
		t.Fatalf("expected classifier classes, got %v", loaded.Metadata.Roles)
	}
	if observed.FilterMessage("labels file and classifier disagree on roles, using classifier classes").Len() != 1 {
		t.Fatalf("expected a debug entry about the disagreement")
	}
}

func TestRolesPriority(t *testing.T) {
	store, _, _ := saved(t)
	ctx := context.Background()
	want := []string{"Data Scientist", "Plumber"}

	steps := []struct {
		remove string
		source RoleSource
	}{
		{source: RoleSourceMetadata},
		{remove: MetadataFile, source: RoleSourceLabels},
		{remove: LabelsFile, source: RoleSourceClassifier},
	}
	for _, st := range steps {
		if st.remove != "" {
			mustRemove(t, filepath.Join(store.Dir, st.remove))
		}
		set, err := store.Roles(ctx)
		if err != nil {
			t.Fatalf("Roles after removing %q: %v", st.remove, err)
		}
		if set.Source != st.source || !slices.Equal(set.Roles, want) {
			t.Fatalf("expected %v from %s, got %+v", want, st.source, set)
		}
	}

	mustRemove(t, filepath.Join(store.Dir, ClassifierFile))
	if _, err := store.Roles(ctx); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt with no role source, got %v", err)
	}
}

func TestRolesSkipsUnreadableSource(t *testing.T) {
	store, _, _ := saved(t)
	mustWrite(t, filepath.Join(store.Dir, MetadataFile), []byte("garbage"))

	set, err := store.Roles(context.Background())
	if err != nil {
		t.Fatalf("Roles: %v", err)
	}
	if set.Source != RoleSourceLabels {
		t.Fatalf("expected fallback to labels, got %s", set.Source)
	}

	mustWrite(t, filepath.Join(store.Dir, LabelsFile), []byte("garbage\n"))
	mustWrite(t, filepath.Join(store.Dir, ClassifierFile), []byte("garbage"))
	_, err = store.Roles(context.Background())
	if err == nil || errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected a read error distinct from ErrNotBuilt, got %v", err)
	}
	if !errors.Is(err, ErrCorruptArtifact) {
		t.Fatalf("expected corrupt artifact error, got %v", err)
	}
}

func TestRolesNotBuilt(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"), nil)
	if _, err := store.Roles(context.Background()); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
}

func TestAtomicSwap(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "new")
	dest := filepath.Join(root, "current")
	mustMkdir(t, src)
	mustMkdir(t, dest)
	mustWrite(t, filepath.Join(src, "a"), []byte("new"))
	mustWrite(t, filepath.Join(dest, "a"), []byte("old"))

	if err := AtomicSwap(src, dest); err != nil {
		t.Fatalf("AtomicSwap: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dest, "a"))
	if err != nil || string(b) != "new" {
		t.Fatalf("expected swapped content, got %q (%v)", b, err)
	}
	if _, err := os.Stat(dest + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("backup dir left behind")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source dir still present")
	}
}

func mustRemove(t *testing.T, path string) {
	t.Helper()
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestSaveWithTrailingSeparator(t *testing.T) {
	parent := t.TempDir()
	store := NewStore(filepath.Join(parent, "artifacts")+string(filepath.Separator), nil)
	if _, err := store.Save(context.Background(), testBundle(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "artifacts" && e.Name() != "artifacts.lock" {
			t.Fatalf("unexpected leftover %q next to the artifact dir", e.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(parent, "artifacts", ".lock")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock file created inside the artifact dir: %v", err)
	}
}

func TestLoadLongRecord(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "artifacts"), nil)
	b := testBundle(t)
	long := strings.Repeat("python sql ", 200*1024)
	b.Records[0].Skills = long
	if _, err := store.Save(context.Background(), b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Records[0].Skills != long {
		t.Fatalf("long record was not restored, got %d bytes", len(got.Records[0].Skills))
	}
}

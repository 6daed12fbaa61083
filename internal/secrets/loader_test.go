package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RESUME_REVIEWER_TEST_KEY", " from-env ")
	t.Setenv("RESUME_REVIEWER_TEST_EMPTY", "")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr bool
		notConf bool
	}{
		{name: "file wins", src: Source{File: keyFile, Value: "inline", Env: "RESUME_REVIEWER_TEST_KEY"}, want: "from-file"},
		{name: "inline before env", src: Source{Value: " inline ", Env: "RESUME_REVIEWER_TEST_KEY"}, want: "inline"},
		{name: "env fallback", src: Source{Env: "RESUME_REVIEWER_TEST_KEY"}, want: "from-env"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "nope"), Env: "RESUME_REVIEWER_TEST_KEY"}, wantErr: true},
		{name: "empty file", src: Source{File: emptyFile}, wantErr: true},
		{name: "empty env", src: Source{Env: "RESUME_REVIEWER_TEST_EMPTY"}, wantErr: true, notConf: true},
		{name: "nothing", src: Source{Name: "api key"}, wantErr: true, notConf: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if tt.notConf != errors.Is(err, ErrNotConfigured) {
					t.Fatalf("unexpected error kind: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

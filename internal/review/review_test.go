package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spigell/resume-reviewer/internal/ai"
	"github.com/spigell/resume-reviewer/internal/jdindex"
	"github.com/spigell/resume-reviewer/internal/textclean"
)

const corpusCSV = `job_position,relevant_skills
Data Scientist,"python, sql, machine learning"
Data Scientist,"python, statistics"
Plumber,"pipes, wrench, repair"
`

const dsResume = "Summary: I build machine learning models in python and sql."

type stubReviewer struct {
	review *ai.Review
	err    error
	last   ai.ReviewRequest
	calls  int
}

func (s *stubReviewer) Review(_ context.Context, req ai.ReviewRequest) (*ai.Review, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.review, nil
}

func builtIndex(t *testing.T) *jdindex.Index {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.csv")
	if err := os.WriteFile(path, []byte(corpusCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	accept := textclean.DetectorFunc(func(string) (string, bool) { return "en", true })
	idx := jdindex.New(jdindex.Config{ArtifactDir: filepath.Join(dir, "artifacts")}, nil, jdindex.WithDetector(accept))
	if _, err := idx.BuildFromCSV(context.Background(), path); err != nil {
		t.Fatalf("BuildFromCSV: %v", err)
	}
	return idx
}

func TestReviewInfersRole(t *testing.T) {
	stub := &stubReviewer{review: &ai.Review{Raw: `{"tailored_summary":"ok"}`, Feedback: &ai.Feedback{TailoredSummary: "ok"}}}
	svc := NewService(builtIndex(t), stub, nil)

	res, err := svc.Review(context.Background(), Request{ResumeText: dsResume, JobDescription: "Need statistics"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.Role != "Data Scientist" || res.MatchedRole != "Data Scientist" {
		t.Fatalf("unexpected roles %q / %q", res.Role, res.MatchedRole)
	}
	if len(res.Guidance) != 2 {
		t.Fatalf("expected both Data Scientist rows as guidance, got %v", res.Guidance)
	}
	for _, skill := range []string{"python", "sql", "machine learning", "statistics"} {
		if !slices.Contains(res.RequiredSkills, skill) {
			t.Fatalf("expected %q in required skills %v", skill, res.RequiredSkills)
		}
	}
	if res.ATS.Detail.KeywordMatchRate != 1 {
		t.Fatalf("expected resume and job description to cover every skill, got %+v", res.ATS.Detail)
	}
	if res.ATS.Score <= 0 || res.ATS.Score > 100 {
		t.Fatalf("score out of range: %f", res.ATS.Score)
	}

	if res.LLMFeedbackRaw != `{"tailored_summary":"ok"}` || res.Feedback == nil || res.Feedback.TailoredSummary != "ok" {
		t.Fatalf("unexpected llm output %+v", res)
	}
	if stub.last.Role != "Data Scientist" || stub.last.JobDescription != "Need statistics" || len(stub.last.Guidance) != 2 {
		t.Fatalf("unexpected reviewer request %+v", stub.last)
	}
}

func TestReviewExplicitRole(t *testing.T) {
	svc := NewService(builtIndex(t), nil, nil)

	res, err := svc.Review(context.Background(), Request{ResumeText: dsResume, Role: " Plumber "})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.Role != "Plumber" || res.MatchedRole != "Data Scientist" {
		t.Fatalf("unexpected roles %q / %q", res.Role, res.MatchedRole)
	}
	if !slices.Equal(res.Guidance, []string{"pipes, wrench, repair"}) {
		t.Fatalf("unexpected guidance %v", res.Guidance)
	}
	if res.LLMFeedbackRaw != "" || res.Feedback != nil {
		t.Fatalf("expected no llm output without a reviewer")
	}
}

func TestReviewErrors(t *testing.T) {
	idx := builtIndex(t)
	llmErr := errors.New("quota")

	tests := []struct {
		name     string
		models   ModelSource
		reviewer ai.Reviewer
		req      Request
		want     error
	}{
		{name: "empty resume", models: idx, req: Request{ResumeText: "  "}, want: ErrEmptyResume},
		{name: "unknown role", models: idx, req: Request{ResumeText: dsResume, Role: "Astronaut"}, want: ErrUnknownRole},
		{name: "index not ready", models: jdindex.New(jdindex.Config{ArtifactDir: t.TempDir()}, nil), req: Request{ResumeText: dsResume}, want: jdindex.ErrNotReady},
		{name: "llm failure", models: idx, reviewer: &stubReviewer{err: llmErr}, req: Request{ResumeText: dsResume}, want: llmErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.models, tt.reviewer, nil).Review(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGuidanceFallback(t *testing.T) {
	csv := "job_position,relevant_skills\nData Scientist,python sql\nPlumber,pipes wrench\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	idx := jdindex.New(jdindex.Config{ArtifactDir: filepath.Join(dir, "artifacts"), DisableLanguageFilter: true}, nil)
	if _, err := idx.BuildFromCSV(context.Background(), path); err != nil {
		t.Fatalf("BuildFromCSV: %v", err)
	}

	svc := NewService(idx, nil, nil)
	svc.guidanceRows = 0
	res, err := svc.Review(context.Background(), Request{ResumeText: "python", Role: "Plumber"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if len(res.Guidance) != 1 || !strings.HasPrefix(res.Guidance[0], "Guidance for Plumber") {
		t.Fatalf("expected fallback guidance, got %v", res.Guidance)
	}
}

package report

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/spigell/resume-reviewer/internal/ai"
	"github.com/spigell/resume-reviewer/internal/ats"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{name: "raw feedback", in: Input{Role: "Data Scientist", ATS: ats.Score("Education\nPython", []string{"python"}), FeedbackRaw: "Add numbers."}},
		{name: "structured feedback", in: Input{Role: "Analyst", Feedback: &ai.Feedback{MissingKeywords: []string{"sql"}, TailoredSummary: "Café lover."}}},
		{name: "empty", in: Input{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Bytes(tt.in, Options{})
			if err != nil {
				t.Fatalf("Bytes: %v", err)
			}
			if len(out) == 0 || !bytes.HasPrefix(out, []byte("%PDF-")) {
				t.Fatalf("expected pdf output, got %d bytes", len(out))
			}
		})
	}
}

func TestDetailLines(t *testing.T) {
	res := ats.Score("Education and experience. Python!", []string{"python", "go"})
	lines := DetailLines(res.Detail)
	want := []string{
		"sections_detected: education, experience",
		"keyword_match_rate: 0.500",
		"matched_keywords: python",
		"missing_keywords: go",
	}
	for _, w := range want {
		if !slices.Contains(lines, w) {
			t.Fatalf("expected %q in %v", w, lines)
		}
	}
	if got := DetailLines(ats.Detail{})[0]; got != "sections_detected: none" {
		t.Fatalf("unexpected first line %q", got)
	}
}

func TestFeedbackText(t *testing.T) {
	if FeedbackText(nil) != "" {
		t.Fatal("expected empty text for nil feedback")
	}
	text := FeedbackText(&ai.Feedback{
		FeedbackBySection: map[string]any{"Skills": "group them", "Education": "fine"},
		BulletRewrites:    []string{"Cut costs by 20%"},
		TailoredSummary:   "Seasoned analyst.",
	})
	for _, want := range []string{"- Education: fine\n- Skills: group them", "Bullet rewrites:\n- Cut costs by 20%", "Tailored summary:\nSeasoned analyst."} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Missing keywords") {
		t.Fatalf("expected empty sections to be omitted:\n%s", text)
	}
}

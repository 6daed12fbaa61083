// Package report renders a review as a downloadable PDF.
package report

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/spigell/resume-reviewer/internal/ai"
	"github.com/spigell/resume-reviewer/internal/ats"
)

const (
	Title         = "Resume Analysis Report"
	defaultSize   = "A4"
	defaultFamily = "Arial"
	lineHeight    = 10.0
)

// Options control page layout. Zero values select A4 and Arial.
type Options struct {
	PageSize   string `mapstructure:"page-size"`
	FontFamily string `mapstructure:"font-family"`
}

// Input is the content of one report.
type Input struct {
	Role        string
	ATS         ats.Result
	FeedbackRaw string
	Feedback    *ai.Feedback
}

// Render writes the report as PDF to w: the score and its breakdown on the
// first page, LLM feedback on the second.
func Render(w io.Writer, in Input, opts Options) error {
	if opts.PageSize == "" {
		opts.PageSize = defaultSize
	}
	if opts.FontFamily == "" {
		opts.FontFamily = defaultFamily
	}

	pdf := fpdf.New("P", "mm", opts.PageSize, "")
	pdf.SetTitle(Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	font := opts.FontFamily

	pdf.AddPage()
	pdf.SetFont(font, "B", 16)
	pdf.CellFormat(0, lineHeight, Title, "", 1, "C", false, 0, "")
	pdf.Line(10, 30, 200, 30)

	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, lineHeight, tr("Position: "+in.Role), "", 1, "", false, 0, "")

	pdf.SetFont(font, "B", 14)
	pdf.CellFormat(0, lineHeight, fmt.Sprintf("ATS Score: %.1f/100", in.ATS.Score), "", 1, "", false, 0, "")

	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, lineHeight, "ATS Analysis:", "", 1, "", false, 0, "")
	pdf.SetFont(font, "", 10)
	for _, line := range DetailLines(in.ATS.Detail) {
		pdf.MultiCell(0, lineHeight, tr(line), "", "", false)
	}

	pdf.AddPage()
	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, lineHeight, "LLM Feedback:", "", 1, "", false, 0, "")
	pdf.SetFont(font, "", 10)
	text := FeedbackText(in.Feedback)
	if text == "" {
		text = in.FeedbackRaw
	}
	if strings.TrimSpace(text) == "" {
		text = "No feedback available."
	}
	pdf.MultiCell(0, lineHeight, tr(text), "", "", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Bytes renders the report into memory.
func Bytes(in Input, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, in, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DetailLines formats the ATS breakdown as "key: value" lines.
func DetailLines(d ats.Detail) []string {
	var found []string
	for _, s := range ats.Sections {
		if d.SectionsDetected[s.Name] {
			found = append(found, s.Name)
		}
	}
	lines := []string{
		"sections_detected: " + joinOrNone(found),
		fmt.Sprintf("keyword_match_rate: %.3f", d.KeywordMatchRate),
		fmt.Sprintf("coverage: %.3f", d.Coverage),
		fmt.Sprintf("quantification: %.3f", d.Quantification),
		fmt.Sprintf("readability: %.1f", d.Readability),
		fmt.Sprintf("formatting_penalty: %.3f", d.FormattingPenalty),
	}
	if len(d.MatchedKeywords) > 0 {
		lines = append(lines, "matched_keywords: "+strings.Join(d.MatchedKeywords, ", "))
	}
	if len(d.MissingKeywords) > 0 {
		lines = append(lines, "missing_keywords: "+strings.Join(d.MissingKeywords, ", "))
	}
	return lines
}

// FeedbackText lays structured feedback out as plain text. It is empty for nil feedback.
func FeedbackText(f *ai.Feedback) string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	if len(f.FeedbackBySection) > 0 {
		b.WriteString("Feedback by section:\n")
		for _, name := range slices.Sorted(maps.Keys(f.FeedbackBySection)) {
			fmt.Fprintf(&b, "- %s: %v\n", name, f.FeedbackBySection[name])
		}
		b.WriteString("\n")
	}
	section("Missing keywords", f.MissingKeywords)
	section("Bullet rewrites", f.BulletRewrites)
	section("Language fixes", f.LanguageFixes)
	section("Formatting suggestions", f.FormattingSuggestions)
	if s := strings.TrimSpace(f.TailoredSummary); s != "" {
		fmt.Fprintf(&b, "Tailored summary:\n%s\n", s)
	}
	return strings.TrimSpace(b.String())
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

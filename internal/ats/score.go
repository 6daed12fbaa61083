// Package ats estimates how well a resume survives an applicant tracking
// system: section coverage, keyword match against required skills,
// quantified achievements, readability and formatting.
package ats

import (
	"math"
	"regexp"
	"slices"
	"strings"
)

// Section is a resume section and the phrases that reveal it.
type Section struct {
	Name  string
	Hints []string
}

// Sections are checked in this order.
var Sections = []Section{
	{Name: "education", Hints: []string{"education", "qualifications", "academics", "b.tech", "m.tech", "bachelor", "master", "university", "college"}},
	{Name: "experience", Hints: []string{"experience", "work", "employment", "professional", "internship"}},
	{Name: "skills", Hints: []string{"skills", "technical skills", "tools", "technologies", "stack"}},
	{Name: "projects", Hints: []string{"projects", "project work", "academic projects", "personal projects"}},
	{Name: "certifications", Hints: []string{"certifications", "courses", "licenses"}},
	{Name: "achievements", Hints: []string{"achievements", "awards", "honors"}},
	{Name: "summary", Hints: []string{"summary", "profile", "objective", "about"}},
}

const (
	weightKeywords    = 0.35
	weightCoverage    = 0.25
	weightQuantify    = 0.20
	weightReadability = 0.20

	maxPenalty         = 0.15
	longSentenceWords  = 35
	defaultReadability = 50.0
)

var (
	numberRe   = regexp.MustCompile(`\b(\d+%?|\d+\.\d+%?)\b`)
	bulletRe   = regexp.MustCompile(`(?m)^\s*[-•*]`)
	sentenceRe = regexp.MustCompile(`[.!?]`)
	capsRe     = regexp.MustCompile(`\b[A-Z]{3,}\b`)
)

// Detail breaks the score into its parts.
type Detail struct {
	SectionsDetected  map[string]bool `json:"sections_detected"`
	KeywordMatchRate  float64         `json:"keyword_match_rate"`
	Coverage          float64         `json:"coverage"`
	Quantification    float64         `json:"quantification"`
	Readability       float64         `json:"readability"`
	FormattingPenalty float64         `json:"formatting_penalty"`
	MatchedKeywords   []string        `json:"matched_keywords,omitempty"`
	MissingKeywords   []string        `json:"missing_keywords,omitempty"`
}

// Result is the ATS score on a 0-100 scale with its breakdown.
type Result struct {
	Score  float64 `json:"score"`
	Detail Detail  `json:"detail"`
}

// Score rates text against the required skills.
func Score(text string, requiredSkills []string) Result {
	sections := DetectSections(text)
	found := 0
	for _, ok := range sections {
		if ok {
			found++
		}
	}
	coverage := float64(found) / float64(max(1, len(sections)))

	rate, matched, missing := KeywordMatch(text, requiredSkills)
	quantify := QuantificationRatio(text)
	read := Readability(text)
	caps, long := FormattingRatios(text)
	penalty := math.Min(maxPenalty, caps*0.2+long*0.2)

	readNorm := clamp((read-30)/70, 0, 1)
	score := weightKeywords*rate +
		weightCoverage*coverage +
		weightQuantify*quantify +
		weightReadability*readNorm
	score = clamp(score-penalty, 0, 1) * 100

	return Result{
		Score: score,
		Detail: Detail{
			SectionsDetected:  sections,
			KeywordMatchRate:  round(rate, 3),
			Coverage:          round(coverage, 3),
			Quantification:    round(quantify, 3),
			Readability:       round(read, 1),
			FormattingPenalty: round(penalty, 3),
			MatchedKeywords:   matched,
			MissingKeywords:   missing,
		},
	}
}

// DetectSections reports which sections are hinted at anywhere in text.
func DetectSections(text string) map[string]bool {
	t := strings.ToLower(text)
	out := make(map[string]bool, len(Sections))
	for _, s := range Sections {
		out[s.Name] = slices.ContainsFunc(s.Hints, func(h string) bool {
			return strings.Contains(t, h)
		})
	}
	return out
}

// KeywordMatch returns the share of distinct skills found as whole words in text.
func KeywordMatch(text string, skills []string) (rate float64, matched, missing []string) {
	t := strings.ToLower(text)
	uniq := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			uniq = append(uniq, s)
		}
	}
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)
	if len(uniq) == 0 {
		return 0, nil, nil
	}

	for _, s := range uniq {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(s) + `\b`)
		if err == nil && re.MatchString(t) {
			matched = append(matched, s)
			continue
		}
		missing = append(missing, s)
	}
	return float64(len(matched)) / float64(len(uniq)), matched, missing
}

// QuantificationRatio approximates how many statements carry numbers or bullets.
func QuantificationRatio(text string) float64 {
	nums := len(numberRe.FindAllString(text, -1))
	bullets := len(bulletRe.FindAllString(text, -1))
	sentences := max(1, len(sentenceRe.FindAllString(text, -1)))
	return math.Min(1, float64(nums+bullets)/(float64(sentences)*0.6))
}

// FormattingRatios returns the share of all-caps words and of overlong sentences.
func FormattingRatios(text string) (allCaps, longSentences float64) {
	words := max(1, len(strings.Fields(text)))
	allCaps = float64(len(capsRe.FindAllString(text, -1))) / float64(words)

	parts := sentenceRe.Split(text, -1)
	long := 0
	for _, p := range parts {
		if len(strings.Fields(p)) > longSentenceWords {
			long++
		}
	}
	longSentences = float64(long) / float64(max(1, len(parts)))
	return allCaps, longSentences
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

var skillSepRe = regexp.MustCompile(`[|,;/\n]+`)

// SplitSkills turns free-text skill lists into distinct lowercase entries,
// keeping the order of first appearance.
func SplitSkills(texts ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, text := range texts {
		for _, s := range skillSepRe.Split(text, -1) {
			s = strings.ToLower(strings.Trim(strings.TrimSpace(s), "."))
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

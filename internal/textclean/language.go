package textclean

import (
	"strings"
	"unicode"

	"github.com/RadhiFadlillah/whatlanggo"
)

// DefaultLanguage is the ISO 639-1 code of the corpus language kept by default.
const DefaultLanguage = "en"

// Detector guesses the language of a text. ok is false when no guess could be made.
type Detector interface {
	Detect(text string) (lang string, ok bool)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(text string) (string, bool)

// Detect calls f.
func (f DetectorFunc) Detect(text string) (string, bool) { return f(text) }

// minReliableWords is the shortest text whose trigram verdict is trusted.
// Role names and skill lists are shorter than that, and whatlanggo reads them
// as Italian, Esperanto or German just as often as English.
const minReliableWords = 8

type whatlangDetector struct {
	fallback string
}

// NewWhatlangDetector returns a trigram based detector. The algorithm has no
// random component, so a given text always yields the same verdict.
//
// Latin-script text that is shorter than minReliableWords, or whose verdict is
// not reliable, is reported as fallback. An empty fallback turns that off.
func NewWhatlangDetector(fallback string) Detector {
	return whatlangDetector{fallback: strings.ToLower(strings.TrimSpace(fallback))}
}

func (d whatlangDetector) Detect(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	if d.fallback != "" && info.Script == unicode.Latin {
		if !info.IsReliable() || len(strings.Fields(text)) < minReliableWords {
			return d.fallback, true
		}
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return "", false
	}
	return code, true
}

// LanguageFilter keeps text written in Language.
type LanguageFilter struct {
	Detector Detector
	Language string
}

// NewLanguageFilter returns a filter for language backed by the default
// detector, which gives short Latin-script text the benefit of the doubt.
func NewLanguageFilter(language string) *LanguageFilter {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = DefaultLanguage
	}
	return &LanguageFilter{Detector: NewWhatlangDetector(language), Language: language}
}

// Match reports whether text is written in the filter language.
// Empty input, an undetectable language and detector panics all yield false.
func (f *LanguageFilter) Match(text string) (matched bool) {
	if f == nil || f.Detector == nil {
		return false
	}
	if strings.TrimSpace(text) == "" {
		return false
	}

	defer func() {
		if recover() != nil {
			matched = false
		}
	}()

	lang, ok := f.Detector.Detect(text)
	if !ok {
		return false
	}
	return strings.EqualFold(lang, f.Language)
}

package ats

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	wordRe     = regexp.MustCompile(`[\p{L}']+`)
	sentEndRe  = regexp.MustCompile(`[.!?]+`)
	vowelRunRe = regexp.MustCompile(`[aeiouy]+`)
)

// Readability returns the Flesch reading ease of text. Text without words
// scores a neutral 50.
func Readability(text string) float64 {
	words := wordRe.FindAllString(text, -1)
	if len(words) == 0 {
		return defaultReadability
	}
	parts := sentEndRe.Split(text, -1)
	sentences := len(parts) - 1
	if strings.TrimSpace(parts[len(parts)-1]) != "" {
		sentences++
	}
	sentences = max(1, sentences)

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wps := float64(len(words)) / float64(sentences)
	spw := float64(syllables) / float64(len(words))
	return 206.835 - 1.015*wps - 84.6*spw
}

// countSyllables approximates syllables by vowel groups, ignoring a silent final e.
func countSyllables(word string) int {
	w := strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, word))
	if w == "" {
		return 0
	}
	n := len(vowelRunRe.FindAllString(w, -1))
	if n > 1 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") {
		n--
	}
	return max(1, n)
}

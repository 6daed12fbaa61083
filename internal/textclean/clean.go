// Package textclean normalises raw corpus and resume text and decides whether a
// piece of text is written in the target language.
package textclean

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	controlRe  = regexp.MustCompile(`[\r\t]`)
	multiSpace = regexp.MustCompile(` {2,}`)
)

// Clean strips NUL bytes and invalid UTF-8 sequences and returns the NFC form of text.
// It never fails: bytes that cannot be decoded are dropped.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\x00", "")
	return norm.NFC.String(text)
}

// CleanDocument prepares extracted resume text: NULs, carriage returns and tabs
// become spaces, runs of spaces collapse to one and the result is trimmed.
func CleanDocument(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\x00", " ")
	text = controlRe.ReplaceAllString(text, " ")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(norm.NFC.String(text))
}

// Package vectorizer turns free text into L2-normalised TF-IDF vectors over a
// vocabulary of unigrams and bigrams learned from the job-description corpus.
package vectorizer

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/bbalet/stopwords"
	"github.com/chewxy/math32"
	"github.com/kljensen/snowball/english"
)

const (
	DefaultMaxFeatures = 5000
	DefaultNgramMax    = 2
	DefaultLanguage    = "en"
)

var (
	// ErrNotFitted is returned when the vectorizer is used before Fit.
	ErrNotFitted = errors.New("vectorizer is not fitted")
	// ErrEmptyVocabulary is returned when no term survives tokenisation.
	ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words or no tokens")
	// ErrFingerprint is returned when a stored state disagrees with its own fingerprint.
	ErrFingerprint = errors.New("vectorizer fingerprint does not match its vocabulary")
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Options configures the analyzer and the vocabulary size.
type Options struct {
	MaxFeatures int    `json:"max_features"`
	NgramMax    int    `json:"ngram_max"`
	Language    string `json:"language"`
	Stem        bool   `json:"stem"`
}

func (o Options) withDefaults() Options {
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = DefaultMaxFeatures
	}
	if o.NgramMax <= 0 {
		o.NgramMax = DefaultNgramMax
	}
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	return o
}

// Vectorizer holds a frozen vocabulary and its IDF weights once fitted.
// A fitted Vectorizer is safe for concurrent Transform calls.
type Vectorizer struct {
	opts        Options
	terms       []string
	vocab       map[string]int
	idf         []float32
	fingerprint string
}

// New returns an unfitted vectorizer.
func New(opts Options) *Vectorizer {
	return &Vectorizer{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (v *Vectorizer) Options() Options { return v.opts }

// Fitted reports whether the vocabulary has been learned.
func (v *Vectorizer) Fitted() bool { return len(v.terms) > 0 }

// Dim is the vocabulary size and the width of every vector.
func (v *Vectorizer) Dim() int { return len(v.terms) }

// Fingerprint identifies the vocabulary and IDF weights.
func (v *Vectorizer) Fingerprint() string { return v.fingerprint }

// Terms returns the vocabulary ordered by column index.
func (v *Vectorizer) Terms() []string { return slices.Clone(v.terms) }

// Vocabulary returns a copy of the term to column mapping.
func (v *Vectorizer) Vocabulary() map[string]int {
	out := make(map[string]int, len(v.vocab))
	for t, i := range v.vocab {
		out[t] = i
	}
	return out
}

// IDF returns a copy of the per-column inverse document frequencies.
func (v *Vectorizer) IDF() []float32 { return slices.Clone(v.idf) }

// Fit learns the vocabulary and IDF weights from texts and returns their vectors.
func (v *Vectorizer) Fit(texts []string) (*Matrix, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyVocabulary
	}

	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, term := range v.analyze(text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	ranked := make([]string, 0, len(df))
	for term := range df {
		ranked = append(ranked, term)
	}
	slices.SortFunc(ranked, func(a, b string) int {
		if df[a] != df[b] {
			return df[b] - df[a]
		}
		return strings.Compare(a, b)
	})
	if len(ranked) > v.opts.MaxFeatures {
		ranked = ranked[:v.opts.MaxFeatures]
	}
	slices.Sort(ranked)

	n := float64(len(texts))
	idf := make([]float32, len(ranked))
	for i, term := range ranked {
		idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1)
	}

	v.setState(ranked, idf)
	return v.Transform(texts)
}

// Transform projects texts onto the fitted vocabulary. Unknown terms are ignored,
// so a text without known terms yields an empty vector.
func (v *Vectorizer) Transform(texts []string) (*Matrix, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	m := &Matrix{Dim: v.Dim(), Rows: make([]Vector, len(texts))}
	for i, text := range texts {
		m.Rows[i] = v.vector(text)
	}
	return m, nil
}

// TransformOne projects a single text.
func (v *Vectorizer) TransformOne(text string) (Vector, error) {
	if !v.Fitted() {
		return Vector{}, ErrNotFitted
	}
	return v.vector(text), nil
}

func (v *Vectorizer) vector(text string) Vector {
	counts := make(map[int]float32)
	for _, term := range v.analyze(text) {
		if j, ok := v.vocab[term]; ok {
			counts[j]++
		}
	}
	if len(counts) == 0 {
		return Vector{}
	}

	vec := Vector{Indices: make([]int, 0, len(counts))}
	for j := range counts {
		vec.Indices = append(vec.Indices, j)
	}
	slices.Sort(vec.Indices)

	vec.Values = make([]float32, len(vec.Indices))
	var norm float32
	for k, j := range vec.Indices {
		w := counts[j] * v.idf[j]
		vec.Values[k] = w
		norm += w * w
	}
	norm = math32.Sqrt(norm)
	if norm > 0 {
		for k := range vec.Values {
			vec.Values[k] /= norm
		}
	}
	return vec
}

// analyze lowercases text, drops stop words, extracts tokens of two or more
// word characters and emits every n-gram up to NgramMax.
func (v *Vectorizer) analyze(text string) []string {
	text = strings.ToLower(text)
	text = stopwords.CleanString(text, v.opts.Language, false)
	tokens := tokenRe.FindAllString(text, -1)
	if v.opts.Stem {
		for i, tok := range tokens {
			tokens[i] = english.Stem(tok, false)
		}
	}

	terms := make([]string, 0, len(tokens)*v.opts.NgramMax)
	for n := 1; n <= v.opts.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				terms = append(terms, tokens[i])
				continue
			}
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

func (v *Vectorizer) setState(terms []string, idf []float32) {
	v.terms = terms
	v.idf = idf
	v.vocab = make(map[string]int, len(terms))
	for i, t := range terms {
		v.vocab[t] = i
	}
	v.fingerprint = fingerprint(terms, idf)
}

func fingerprint(terms []string, idf []float32) string {
	h := sha256.New()
	var buf [4]byte
	for i, t := range terms {
		h.Write([]byte(t))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(idf[i]))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

type state struct {
	Options     Options   `json:"options"`
	Terms       []string  `json:"terms"`
	IDF         []float32 `json:"idf"`
	Fingerprint string    `json:"fingerprint"`
}

// MarshalJSON encodes the fitted state.
func (v *Vectorizer) MarshalJSON() ([]byte, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	return json.Marshal(state{
		Options:     v.opts,
		Terms:       v.terms,
		IDF:         v.idf,
		Fingerprint: v.fingerprint,
	})
}

// UnmarshalJSON restores a fitted state and verifies its fingerprint.
func (v *Vectorizer) UnmarshalJSON(data []byte) error {
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s.Terms) == 0 {
		return ErrEmptyVocabulary
	}
	if len(s.Terms) != len(s.IDF) {
		return fmt.Errorf("vocabulary has %d terms but %d idf weights", len(s.Terms), len(s.IDF))
	}
	v.opts = s.Options.withDefaults()
	v.setState(s.Terms, s.IDF)
	if s.Fingerprint != "" && s.Fingerprint != v.fingerprint {
		return ErrFingerprint
	}
	return nil
}

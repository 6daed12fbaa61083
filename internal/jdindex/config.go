package jdindex

import (
	"github.com/spigell/resume-reviewer/internal/classifier"
	"github.com/spigell/resume-reviewer/internal/corpus"
	"github.com/spigell/resume-reviewer/internal/textclean"
	"github.com/spigell/resume-reviewer/internal/vectorizer"
)

// DefaultArtifactDir is used when Config.ArtifactDir is empty.
const DefaultArtifactDir = "artifacts"

// Config holds the build and storage settings of the index.
type Config struct {
	ArtifactDir           string  `mapstructure:"artifact-dir"`
	ChunkSize             int     `mapstructure:"chunk-size"`
	SampleSize            int     `mapstructure:"sample-size"`
	MaxFeatures           int     `mapstructure:"max-features"`
	Epochs                int     `mapstructure:"epochs"`
	Alpha                 float64 `mapstructure:"alpha"`
	Seed                  uint64  `mapstructure:"seed"`
	Language              string  `mapstructure:"language"`
	DisableLanguageFilter bool    `mapstructure:"disable-language-filter"`
	Stem                  bool    `mapstructure:"stem"`
	Workers               int     `mapstructure:"workers"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ArtifactDir: DefaultArtifactDir,
		ChunkSize:   corpus.DefaultChunkSize,
		MaxFeatures: vectorizer.DefaultMaxFeatures,
		Epochs:      classifier.DefaultEpochs,
		Alpha:       classifier.DefaultAlpha,
		Seed:        corpus.DefaultSeed,
		Language:    textclean.DefaultLanguage,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ArtifactDir == "" {
		c.ArtifactDir = d.ArtifactDir
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = d.MaxFeatures
	}
	if c.Epochs <= 0 {
		c.Epochs = d.Epochs
	}
	if c.Alpha <= 0 {
		c.Alpha = d.Alpha
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	return c
}

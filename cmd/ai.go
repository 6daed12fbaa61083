package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/ai"
	"github.com/spigell/resume-reviewer/internal/ai/gemini"
	"github.com/spigell/resume-reviewer/internal/secrets"
)

const geminiKeyEnv = "GEMINI_API_KEY"

// newReviewer returns nil without error when the LLM review is disabled.
func newReviewer(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Reviewer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	gc := cfg.Gemini
	if gc == nil {
		gc = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  gc.APIKeyFile,
		Value: gc.APIKey,
		Env:   geminiKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w, ai.gemini.api-key-file or ai.gemini.api-key", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gc.Options, logger)
	if err != nil {
		return nil, err
	}

	reviewerLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", generator.Model()),
	)

	return gemini.NewReviewer(generator, reviewerLogger, gc.MaxLogLength), nil
}

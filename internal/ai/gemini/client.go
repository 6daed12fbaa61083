package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-reviewer/internal/logger"
)

const (
	defaultModel           = "gemini-2.5-flash"
	defaultTemperature     = 0.2
	defaultMaxOutputTokens = 800
	defaultMaxTries        = 3
	defaultRetryInterval   = time.Second
	maxRetryElapsed        = time.Minute
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("gemini api returned empty response")

// Options tune generation. Zero values select the defaults.
type Options struct {
	Model           string  `mapstructure:"model"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxOutputTokens int32   `mapstructure:"max-output-tokens"`
	MaxTries        uint    `mapstructure:"max-tries"`
}

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models        contentModels
	modelName     string
	temperature   float32
	maxTokens     int32
	maxTries      uint
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts, log), nil
}

func newGenerator(models contentModels, opts Options, log *zap.Logger) *Generator {
	g := &Generator{
		models:        models,
		modelName:     strings.TrimSpace(opts.Model),
		temperature:   opts.Temperature,
		maxTokens:     opts.MaxOutputTokens,
		maxTries:      opts.MaxTries,
		retryInterval: defaultRetryInterval,
	}
	if g.modelName == "" {
		g.modelName = defaultModel
	}
	if g.temperature <= 0 {
		g.temperature = defaultTemperature
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxOutputTokens
	}
	if g.maxTries == 0 {
		g.maxTries = defaultMaxTries
	}
	g.logger = logger.WithAIFields(log, "gemini", g.modelName)
	return g
}

// GenerateContent sends the prompt with the system instruction and returns the
// textual response. Rate limits and server errors are retried with
// exponential backoff.
func (g *Generator) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
	if system = strings.TrimSpace(system); system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	attempt := 0
	operation := func() (string, error) {
		attempt++
		resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
		if err != nil {
			if !retryable(err) {
				return "", backoff.Permanent(fmt.Errorf("generate content: %w", err))
			}
			g.logger.Warn("gemini request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return "", fmt.Errorf("generate content: %w", err)
		}

		output := responseText(resp)
		if output == "" {
			return "", backoff.Permanent(ErrEmptyResponse)
		}
		return output, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.retryInterval
	bo.MaxInterval = 10 * g.retryInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(g.maxTries),
		backoff.WithMaxElapsedTime(maxRetryElapsed),
	)
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func retryable(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}

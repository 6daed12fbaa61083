package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/ai"
	"github.com/spigell/resume-reviewer/internal/logger"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxJobDescRunes     = 2000
	maxResumeRunes      = 6000
	maxGuidanceBlobs    = 3
)

// Reviewer asks Gemini for structured resume feedback.
type Reviewer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewReviewer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Reviewer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Reviewer{
		generator: generator,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

// Review sends the resume to the model. A reply that is not valid JSON is not
// an error: the raw text is returned with ParseErr set.
func (r *Reviewer) Review(ctx context.Context, req ai.ReviewRequest) (*ai.Review, error) {
	role := strings.TrimSpace(req.Role)
	if role == "" {
		return nil, errors.New("target role is required")
	}
	if strings.TrimSpace(req.Resume) == "" {
		return nil, errors.New("resume text is required")
	}

	prompt := buildPrompt(req)
	system := systemInstruction(role)

	r.logger.Debug("gemini review request",
		zap.String("role", role),
		zap.Int("guidance", len(req.Guidance)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini review response",
		zap.String("role", role),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, r.maxLogLen)),
	)

	review := &ai.Review{Raw: raw}
	review.Feedback, review.ParseErr = parseResponse(raw)
	if review.ParseErr != nil {
		r.logger.Warn("review response is not structured, keeping raw text", zap.Error(review.ParseErr))
	}
	return review, nil
}

func systemInstruction(role string) string {
	return fmt.Sprintf("You are a meticulous ATS-savvy resume coach for %s.", role)
}

func buildPrompt(req ai.ReviewRequest) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Target Role: {{ROLE}}\n\nJD:\n{{JOB_DESCRIPTION}}\n\nGuidance:\n{{GUIDANCE}}\n\nResume Text:\n{{RESUME}}\n\nJSON Response:"
	}

	guidance := req.Guidance
	if len(guidance) > maxGuidanceBlobs {
		guidance = guidance[:maxGuidanceBlobs]
	}

	replacer := strings.NewReplacer(
		"{{ROLE}}", strings.TrimSpace(req.Role),
		"{{JOB_DESCRIPTION}}", truncateRunes(req.JobDescription, maxJobDescRunes),
		"{{GUIDANCE}}", strings.Join(guidance, "\n\n"),
		"{{RESUME}}", truncateRunes(req.Resume, maxResumeRunes),
	)
	return replacer.Replace(template)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func parseResponse(raw string) (*ai.Feedback, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var feedback ai.Feedback
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &feedback,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(stringifyHook),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini feedback: %w", err)
	}
	return &feedback, nil
}

// stringifyHook flattens structured values the model sometimes returns where
// plain text is expected, such as {"before": ..., "after": ...} rewrites.
func stringifyHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from.Kind() == reflect.String {
		return data, nil
	}
	return coerceString(data), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldArtifactDir is the structured log field key for the index artifact directory.
	FieldArtifactDir = "artifact_dir"
	// FieldFingerprint is the structured log field key for the vocabulary fingerprint.
	FieldFingerprint = "fingerprint"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger is replaced by a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// AIFields returns fields that describe the AI provider and model.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithAIFields attaches the AI provider and model to the logger.
func WithAIFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, AIFields(provider, model)...)
}

// IndexFields returns fields that identify an artifact bundle.
// The fingerprint is shortened to keep log lines readable.
func IndexFields(dir, fingerprint string) []zap.Field {
	if len(fingerprint) > 12 {
		fingerprint = fingerprint[:12]
	}
	return StringFields(
		StringField{Key: FieldArtifactDir, Value: dir},
		StringField{Key: FieldFingerprint, Value: fingerprint},
	)
}

// WithIndexFields attaches the artifact bundle fields to the logger.
func WithIndexFields(logger *zap.Logger, dir, fingerprint string) *zap.Logger {
	return WithFields(logger, IndexFields(dir, fingerprint)...)
}

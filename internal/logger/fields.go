package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider    = "provider"
	FieldModel       = "model"
	FieldRequestID   = "request_id"
	FieldState       = "state"
	FieldIncomeLevel = "income_level"
	FieldStrategy    = "strategy"
	FieldLanguage    = "language"
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

// WithFields attaches fields to logger. A nil logger becomes a no-op one.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithCommonFields tags logger with the remote provider and model names.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)...)
}

// QueryFields describes a recommendation query.
func QueryFields(state, incomeLevel, strategy string) []zap.Field {
	return StringFields(
		StringField{Key: FieldState, Value: state},
		StringField{Key: FieldIncomeLevel, Value: incomeLevel},
		StringField{Key: FieldStrategy, Value: strategy},
	)
}

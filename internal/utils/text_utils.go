package utils

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DecodeBase64URL decodes URL-safe base64 content, tolerating both padded
// and unpadded input (the Gmail API emits unpadded data).
func DecodeBase64URL(data string) ([]byte, error) {
	data = strings.TrimRight(data, "=")
	return base64.RawURLEncoding.DecodeString(data)
}

// SanitizeUTF8 drops invalid UTF-8 sequences from the input, so decoded
// body bytes never fail downstream text handling.
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}

// TextProcessor provides utilities for preparing text before it is handed
// to a remote model
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText safely truncates text to the specified maximum size and
// ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return SanitizeUTF8(tp.TruncateText(text, maxSize))
}

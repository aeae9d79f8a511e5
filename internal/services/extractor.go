package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var ErrExtractionFailed = errors.New("extraction failed")

// Completer is a hosted text-completion model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor turns free user text into either a location ("City" or
// "City,Country") or a direct answer, via a single model call.
type Extractor struct {
	llm    Completer
	logger *zap.Logger
}

func NewExtractor(llm Completer, logger *zap.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// Extract returns the model's whitespace-trimmed output. Which branch of the
// prompt fired is not decided here.
func (e *Extractor) Extract(ctx context.Context, userText string) (string, error) {
	out, err := e.llm.Complete(ctx, BuildExtractionPrompt(userText))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	answer := strings.TrimSpace(out)
	e.logger.Debug("Extraction completed",
		zap.String("query", userText),
		zap.String("answer", answer))

	return answer, nil
}

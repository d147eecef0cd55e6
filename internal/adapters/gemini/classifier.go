package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// Classifier is an implementation of the TextClassifier interface using
// Google Gemini as an alternative to the default bag-of-words model
type Classifier struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewClassifier creates a new Gemini classifier
func NewClassifier(
	client *genai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Classifier {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Classifier{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are a spam detection system. Analyze the following email text and determine if it's spam.
Respond with a JSON object containing:
- is_spam: boolean (true if spam, false if not)
- confidence: number between 0 and 1 (probability mass on your verdict)

Text:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// Classify scores the given text and returns a label with confidence
func (c *Classifier) Classify(ctx context.Context, text string) (*core.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return &core.ClassificationResult{
			Label:      core.LabelClean,
			Confidence: 0.0,
			ModelUsed:  c.modelName,
			AnalyzedAt: time.Now(),
		}, nil
	}

	prompt := fmt.Sprintf(c.promptFormat, c.textProcessor.ProcessText(text, c.maxBodySize))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			responseText.WriteString(string(textPart))
		}
	}

	parsed, err := parseResponse(responseText.String())
	if err != nil {
		return nil, err
	}

	return resultFromResponse(parsed, c.modelName), nil
}

// Close releases the underlying API client
func (c *Classifier) Close() error {
	return c.client.Close()
}

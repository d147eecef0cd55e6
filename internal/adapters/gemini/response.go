package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// classifierResponse represents the structured response from the LLM
type classifierResponse struct {
	IsSpam     bool    `json:"is_spam"`
	Confidence float64 `json:"confidence"`
}

// parseResponse unmarshals the LLM output, tolerating prose around the
// JSON object
func parseResponse(responseText string) (*classifierResponse, error) {
	var parsed classifierResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err == nil {
		return &parsed, nil
	}

	jsonStart := strings.Index(responseText, "{")
	jsonEnd := strings.LastIndex(responseText, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("failed to extract JSON from LLM response")
	}

	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return &parsed, nil
}

// resultFromResponse converts the LLM verdict into the core result shape
func resultFromResponse(parsed *classifierResponse, modelName string) *core.ClassificationResult {
	label := core.LabelClean
	if parsed.IsSpam {
		label = core.LabelSpam
	}
	return &core.ClassificationResult{
		Label:      label,
		Confidence: math.Round(parsed.Confidence*100*100) / 100,
		ModelUsed:  modelName,
		AnalyzedAt: time.Now(),
	}
}

// Package bow implements the default text classifier: a pre-trained
// bag-of-words vectorizer paired with a linear model. Artifacts are opaque
// gob blobs produced by the training pipeline; this package only scores.
package bow

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// Vectorizer maps tokens into the model's feature space. An empty IDF
// slice means raw term counts are used as-is.
type Vectorizer struct {
	Vocabulary map[string]int
	IDF        []float64
}

// Model is a linear spam/clean model over the vectorizer's feature space.
// HasProbability mirrors whether the training side exported calibrated
// probabilities; when false, confidence is reported as 0.
type Model struct {
	Weights        []float64
	Bias           float64
	HasProbability bool
}

// Classifier scores text against the loaded artifacts. The artifacts are
// read-only after load, so one Classifier is safe for concurrent use.
type Classifier struct {
	vectorizer *Vectorizer
	model      *Model
	logger     *zap.Logger
}

// NewClassifier loads both artifacts and validates that they belong
// together. A missing or inconsistent artifact is an error here, which the
// caller treats as fatal at startup.
func NewClassifier(vectorizerPath, modelPath string, logger *zap.Logger) (*Classifier, error) {
	vectorizer := &Vectorizer{}
	if err := loadArtifact(vectorizerPath, vectorizer); err != nil {
		return nil, fmt.Errorf("failed to load vectorizer artifact: %w", err)
	}

	model := &Model{}
	if err := loadArtifact(modelPath, model); err != nil {
		return nil, fmt.Errorf("failed to load model artifact: %w", err)
	}

	if len(model.Weights) != len(vectorizer.Vocabulary) {
		return nil, fmt.Errorf("artifact mismatch: %d weights vs %d vocabulary terms",
			len(model.Weights), len(vectorizer.Vocabulary))
	}
	if len(vectorizer.IDF) > 0 && len(vectorizer.IDF) != len(vectorizer.Vocabulary) {
		return nil, fmt.Errorf("artifact mismatch: %d idf terms vs %d vocabulary terms",
			len(vectorizer.IDF), len(vectorizer.Vocabulary))
	}

	logger.Info("Loaded classifier artifacts",
		zap.String("vectorizer", vectorizerPath),
		zap.String("model", modelPath),
		zap.Int("vocabulary_size", len(vectorizer.Vocabulary)),
		zap.Bool("probability", model.HasProbability))

	return &Classifier{
		vectorizer: vectorizer,
		model:      model,
		logger:     logger,
	}, nil
}

// NewClassifierFromArtifacts builds a classifier around already-decoded
// artifacts. Used by tests and by callers that manage artifact IO themselves.
func NewClassifierFromArtifacts(vectorizer *Vectorizer, model *Model, logger *zap.Logger) *Classifier {
	return &Classifier{
		vectorizer: vectorizer,
		model:      model,
		logger:     logger,
	}
}

// Classify scores the text. Empty input returns {Clean, 0.0} without
// touching the model. The inference path has no randomness: identical text
// and artifacts always produce identical output.
func (c *Classifier) Classify(ctx context.Context, text string) (*core.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return &core.ClassificationResult{
			Label:      core.LabelClean,
			Confidence: 0.0,
			ModelUsed:  "bow",
			AnalyzedAt: time.Now(),
		}, nil
	}

	features := c.vectorize(text)

	score := c.model.Bias
	for idx, value := range features {
		score += c.model.Weights[idx] * value
	}
	spamProbability := sigmoid(score)

	label := core.LabelClean
	predicted := 1.0 - spamProbability
	if spamProbability >= 0.5 {
		label = core.LabelSpam
		predicted = spamProbability
	}

	confidence := 0.0
	if c.model.HasProbability {
		confidence = math.Round(predicted*100*100) / 100
	}

	return &core.ClassificationResult{
		Label:      label,
		Confidence: confidence,
		ModelUsed:  "bow",
		AnalyzedAt: time.Now(),
	}, nil
}

// vectorize produces the sparse feature vector for the text
func (c *Classifier) vectorize(text string) map[int]float64 {
	features := make(map[int]float64)
	for _, token := range tokenize(text) {
		if idx, ok := c.vectorizer.Vocabulary[token]; ok {
			features[idx]++
		}
	}
	if len(c.vectorizer.IDF) > 0 {
		for idx := range features {
			features[idx] *= c.vectorizer.IDF[idx]
		}
	}
	return features
}

// tokenize splits text on non-alphanumeric runes, case-folded the same way
// the training pipeline folds its vocabulary
func tokenize(text string) []string {
	folded := cases.Fold().String(text)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// loadArtifact gob-decodes one artifact file into dst
func loadArtifact(path string, dst interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

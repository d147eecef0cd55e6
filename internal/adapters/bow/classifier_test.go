package bow

import (
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// testClassifier scores "viagra" and "winner" toward spam and "meeting"
// toward clean, with calibrated probabilities enabled.
func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	vectorizer := &Vectorizer{
		Vocabulary: map[string]int{"viagra": 0, "winner": 1, "meeting": 2},
	}
	model := &Model{
		Weights:        []float64{4.0, 3.0, -4.0},
		Bias:           -1.0,
		HasProbability: true,
	}
	return NewClassifierFromArtifacts(vectorizer, model, zap.NewNop())
}

func TestClassifyEmptyText(t *testing.T) {
	classifier := testClassifier(t)

	for _, text := range []string{"", "   ", "\n\t "} {
		result, err := classifier.Classify(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, core.LabelClean, result.Label)
		assert.Equal(t, 0.0, result.Confidence)
		assert.Equal(t, "bow", result.ModelUsed)
	}
}

func TestClassifySpam(t *testing.T) {
	classifier := testClassifier(t)

	result, err := classifier.Classify(context.Background(), "VIAGRA winner winner")

	require.NoError(t, err)
	assert.Equal(t, core.LabelSpam, result.Label)
	assert.Greater(t, result.Confidence, 50.0)
	assert.LessOrEqual(t, result.Confidence, 100.0)
}

func TestClassifyClean(t *testing.T) {
	classifier := testClassifier(t)

	result, err := classifier.Classify(context.Background(), "meeting tomorrow about the meeting notes")

	require.NoError(t, err)
	assert.Equal(t, core.LabelClean, result.Label)
	assert.Greater(t, result.Confidence, 50.0)
}

func TestClassifyDeterministic(t *testing.T) {
	classifier := testClassifier(t)
	text := "winner of the viagra meeting"

	first, err := classifier.Classify(context.Background(), text)
	require.NoError(t, err)
	second, err := classifier.Classify(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestClassifyConfidenceIsPredictedClassPercent(t *testing.T) {
	classifier := testClassifier(t)

	// Only clean-weighted tokens: spam probability sigmoid(-5) ~= 0.0067,
	// so the reported confidence is the clean side, 99.33.
	result, err := classifier.Classify(context.Background(), "meeting")

	require.NoError(t, err)
	assert.Equal(t, core.LabelClean, result.Label)
	assert.InDelta(t, 99.33, result.Confidence, 0.01)
}

func TestClassifyWithoutProbability(t *testing.T) {
	vectorizer := &Vectorizer{Vocabulary: map[string]int{"viagra": 0}}
	model := &Model{Weights: []float64{5.0}, Bias: 0, HasProbability: false}
	classifier := NewClassifierFromArtifacts(vectorizer, model, zap.NewNop())

	result, err := classifier.Classify(context.Background(), "viagra")

	require.NoError(t, err)
	assert.Equal(t, core.LabelSpam, result.Label)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestClassifyUnknownTokensOnly(t *testing.T) {
	classifier := testClassifier(t)

	// Nothing in vocabulary: score is just the bias, sigmoid(-1) < 0.5.
	result, err := classifier.Classify(context.Background(), "quarterly forecast attached")

	require.NoError(t, err)
	assert.Equal(t, core.LabelClean, result.Label)
}

func TestClassifyAppliesIDF(t *testing.T) {
	vectorizer := &Vectorizer{
		Vocabulary: map[string]int{"rare": 0, "common": 1},
		IDF:        []float64{3.0, 0.1},
	}
	model := &Model{Weights: []float64{1.0, 1.0}, Bias: -1.0, HasProbability: true}
	classifier := NewClassifierFromArtifacts(vectorizer, model, zap.NewNop())

	rare, err := classifier.Classify(context.Background(), "rare")
	require.NoError(t, err)
	common, err := classifier.Classify(context.Background(), "common")
	require.NoError(t, err)

	assert.Equal(t, core.LabelSpam, rare.Label)
	assert.Equal(t, core.LabelClean, common.Label)
}

func TestTokenizeFoldsAndSplits(t *testing.T) {
	tokens := tokenize("Hello, WORLD!  Straße-42")

	assert.Equal(t, []string{"hello", "world", "strasse", "42"}, tokens)
}

func writeArtifact(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gob.NewEncoder(f).Encode(v))
	return path
}

func TestNewClassifierLoadsArtifacts(t *testing.T) {
	dir := t.TempDir()
	vPath := writeArtifact(t, dir, "vectorizer.gob", &Vectorizer{
		Vocabulary: map[string]int{"spam": 0, "ham": 1},
	})
	mPath := writeArtifact(t, dir, "model.gob", &Model{
		Weights:        []float64{2.0, -2.0},
		Bias:           0,
		HasProbability: true,
	})

	classifier, err := NewClassifier(vPath, mPath, zap.NewNop())
	require.NoError(t, err)

	result, err := classifier.Classify(context.Background(), "spam spam")
	require.NoError(t, err)
	assert.Equal(t, core.LabelSpam, result.Label)
}

func TestNewClassifierMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	mPath := writeArtifact(t, dir, "model.gob", &Model{Weights: []float64{1}})

	_, err := NewClassifier(filepath.Join(dir, "missing.gob"), mPath, zap.NewNop())

	assert.Error(t, err)
}

func TestNewClassifierArtifactMismatch(t *testing.T) {
	dir := t.TempDir()
	vPath := writeArtifact(t, dir, "vectorizer.gob", &Vectorizer{
		Vocabulary: map[string]int{"a": 0, "b": 1, "c": 2},
	})
	mPath := writeArtifact(t, dir, "model.gob", &Model{Weights: []float64{1.0}})

	_, err := NewClassifier(vPath, mPath, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact mismatch")
}

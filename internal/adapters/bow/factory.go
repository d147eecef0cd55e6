package bow

import (
	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of the bag-of-words Classifier
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Classifier instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier loads the configured artifacts and builds the classifier
func (f *Factory) CreateClassifier() (core.TextClassifier, error) {
	classifierCfg := f.cfg.GetClassifier()
	return NewClassifier(classifierCfg.VectorizerPath, classifierCfg.ModelPath, f.logger)
}

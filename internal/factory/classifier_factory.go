package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/adapters/bedrock"
	"github.com/mikey/mail-threat-scanner/internal/adapters/bow"
	"github.com/mikey/mail-threat-scanner/internal/adapters/gemini"
	"github.com/mikey/mail-threat-scanner/internal/adapters/openai"
	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// ClassifierFactory creates text classifiers
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a new text classifier based on the configured
// provider. The default "bow" provider scores locally against pre-trained
// artifacts; the remaining providers delegate to a remote LLM.
func (f *ClassifierFactory) CreateClassifier() (core.TextClassifier, error) {
	classifierCfg := f.cfg.GetClassifier()

	switch classifierCfg.Provider {
	case "bow":
		return bow.NewFactory(f.cfg, f.logger).CreateClassifier()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", classifierCfg.Provider)
	}
}

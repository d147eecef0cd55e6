package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/adapters/gateway"
	"github.com/mikey/mail-threat-scanner/internal/adapters/virustotal"
	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/extract"
	"github.com/mikey/mail-threat-scanner/internal/factory"
	"github.com/mikey/mail-threat-scanner/internal/logging"
	"github.com/mikey/mail-threat-scanner/internal/ports"
	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// for the gateway daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register text classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.TextClassifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register batch repository
	if err := container.Provide(func(f *factory.StoreFactory) (core.BatchRepository, error) {
		return f.CreateRepository()
	}); err != nil {
		return nil, err
	}

	// Register reputation scanner
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.ReputationScanner, error) {
		vtCfg, err := cfg.GetVirusTotal()
		if err != nil {
			return nil, err
		}
		if vtCfg.APIKey == "" {
			logger.Warn("VirusTotal API key is not configured, scans will be degraded")
		}
		return virustotal.NewClient(vtCfg, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register extractor
	if err := container.Provide(func() core.Extractor {
		return extract.NewTreeExtractor()
	}); err != nil {
		return nil, err
	}

	// Register inline attachment fetcher (gateway mode serves attachment
	// bytes from the inbound message itself)
	if err := container.Provide(gateway.NewInlineFetcher); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *gateway.InlineFetcher) core.AttachmentFetcher {
		return f
	}); err != nil {
		return nil, err
	}

	// Register URL scan bound
	if err := container.Provide(func(cfg *config.Config) int {
		return cfg.GetScan().MaxURLScans
	}); err != nil {
		return nil, err
	}

	// Register whitelisted domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) []string {
		domains := cfg.GetScan().WhitelistedDomains
		if len(domains) > 0 {
			logger.Info("Loaded whitelisted domains", zap.Strings("domains", domains))
		}
		return domains
	}); err != nil {
		return nil, err
	}

	// Register threat service
	if err := container.Provide(core.NewThreatService); err != nil {
		return nil, err
	}

	// Register SMTP gateway
	if err := container.Provide(func(
		service *core.ThreatService,
		fetcher *gateway.InlineFetcher,
		cfg *config.Config,
		logger *zap.Logger,
	) ports.EmailGateway {
		return gateway.NewSMTPGateway(service, fetcher, cfg.GetGateway(), logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

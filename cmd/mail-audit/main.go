package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	gmailsource "github.com/mikey/mail-threat-scanner/internal/adapters/gmail"
	"github.com/mikey/mail-threat-scanner/internal/adapters/virustotal"
	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/extract"
	"github.com/mikey/mail-threat-scanner/internal/factory"
	"github.com/mikey/mail-threat-scanner/internal/logging"
	"github.com/mikey/mail-threat-scanner/internal/utils"
)

var (
	// Classifier flags
	provider       = flag.String("provider", "bow", "Classifier provider (bow, openai, gemini, bedrock)")
	vectorizerPath = flag.String("vectorizer", "", "Path to the vectorizer artifact (bow provider)")
	modelPath      = flag.String("model", "", "Path to the model artifact (bow provider)")

	// Scan flags
	vtAPIKey    = flag.String("vt-api-key", "", "VirusTotal API key (falls back to config/env)")
	maxURLScans = flag.Int("max-url-scans", 5, "Maximum URLs scanned per email")
	whitelist   = flag.String("whitelist", "", "Comma-separated list of whitelisted sender domains")

	// Gmail flags
	credentialsPath = flag.String("credentials", "credentials.json", "Path to OAuth credentials file")
	tokenPath       = flag.String("token", "token.json", "Path to OAuth token file")

	// Batch flags
	maxResults = flag.Int64("max", 10, "Number of recent messages to audit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	ctx := context.Background()
	textProcessor := utils.NewTextProcessor(logger)

	// Classifier: missing artifacts are fatal here, before any email work
	classifier, err := factory.NewClassifierFactory(cfg, logger, textProcessor).CreateClassifier()
	if err != nil {
		logger.Fatal("Failed to create classifier", zap.Error(err))
	}

	vtCfg, err := cfg.GetVirusTotal()
	if err != nil {
		logger.Fatal("Invalid VirusTotal configuration", zap.Error(err))
	}
	scanner := virustotal.NewClient(vtCfg, logger)

	source, err := gmailsource.NewSource(ctx, cfg.GetGmail(), logger)
	if err != nil {
		logger.Fatal("Failed to create Gmail source", zap.Error(err))
	}

	repo, err := factory.NewStoreFactory(cfg, logger).CreateRepository()
	if err != nil {
		logger.Fatal("Failed to create batch repository", zap.Error(err))
	}
	defer repo.Close()

	scanCfg := cfg.GetScan()
	service := core.NewThreatService(
		classifier,
		scanner,
		source,
		extract.NewTreeExtractor(),
		repo,
		logger,
		scanCfg.MaxURLScans,
		scanCfg.WhitelistedDomains,
	)

	fmt.Printf("\n=== Mail Audit ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("classifier.provider"))
	fmt.Printf("Auditing %d most recent messages...\n\n", *maxResults)

	startTime := time.Now()
	records, err := service.ScanRecent(ctx, source, *maxResults, func(processed, total int) {
		fmt.Printf("Processed %d/%d\n", processed, total)
	})
	if err != nil {
		logger.Fatal("Batch failed", zap.Error(err))
	}

	fmt.Printf("\n=== Results ===\n")
	fmt.Println(strings.Join(core.BatchHeader(), "\t"))
	for i := range records {
		fmt.Println(strings.Join(records[i].Fields(), "\t"))
	}
	fmt.Printf("\nProcessed %d emails in %v\n", len(records), time.Since(startTime))

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("classifier.provider", *provider)
	if *vectorizerPath != "" {
		v.Set("classifier.vectorizer_path", *vectorizerPath)
	}
	if *modelPath != "" {
		v.Set("classifier.model_path", *modelPath)
	}

	if *vtAPIKey != "" {
		v.Set("virustotal.api_key", *vtAPIKey)
	}
	v.Set("scan.max_url_scans", *maxURLScans)

	if *whitelist != "" {
		domains := strings.Split(*whitelist, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("scan.whitelisted_domains", domains)
	} else {
		v.Set("scan.whitelisted_domains", []string{})
	}

	v.Set("gmail.credentials_path", *credentialsPath)
	v.Set("gmail.token_path", *tokenPath)

	return config.NewFromViper(v)
}

package config

import (
	"time"
)

// ClassifierConfig represents the configuration for the text classifier
type ClassifierConfig struct {
	Provider       string
	VectorizerPath string
	ModelPath      string
}

// VirusTotalConfig represents the configuration for the reputation scanner
type VirusTotalConfig struct {
	APIKey           string
	BaseURL          string
	FilePollAttempts int
	URLPollAttempts  int
	PollInterval     time.Duration
	RequestTimeout   time.Duration
}

// GmailConfig represents the configuration for the Gmail email source
type GmailConfig struct {
	CredentialsPath string
	TokenPath       string
}

// ScanConfig represents pipeline-level scan limits and bypasses
type ScanConfig struct {
	MaxURLScans        int
	WhitelistedDomains []string
}

// OpenAIConfig represents the configuration for the OpenAI classifier
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for the Gemini classifier
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for the Bedrock classifier
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// StoreConfig represents the configuration for the batch record store
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// GatewayConfig represents the configuration for the SMTP gateway
type GatewayConfig struct {
	ListenAddress    string
	BlockHigh        bool
	UpstreamAddr     string
	UpstreamPort     int
	UpstreamEnabled  bool
	VerdictHeader    string
	LabelHeader      string
	ConfidenceHeader string
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Provider:       c.GetString("classifier.provider"),
		VectorizerPath: c.GetString("classifier.vectorizer_path"),
		ModelPath:      c.GetString("classifier.model_path"),
	}
}

// GetVirusTotal returns the VirusTotal configuration
func (c *Config) GetVirusTotal() (VirusTotalConfig, error) {
	pollInterval, err := c.GetDuration("virustotal.poll_interval")
	if err != nil {
		return VirusTotalConfig{}, err
	}
	requestTimeout, err := c.GetDuration("virustotal.request_timeout")
	if err != nil {
		return VirusTotalConfig{}, err
	}
	return VirusTotalConfig{
		APIKey:           c.GetString("virustotal.api_key"),
		BaseURL:          c.GetString("virustotal.base_url"),
		FilePollAttempts: c.GetInt("virustotal.file_poll_attempts"),
		URLPollAttempts:  c.GetInt("virustotal.url_poll_attempts"),
		PollInterval:     pollInterval,
		RequestTimeout:   requestTimeout,
	}, nil
}

// GetGmail returns the Gmail source configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsPath: c.GetString("gmail.credentials_path"),
		TokenPath:       c.GetString("gmail.token_path"),
	}
}

// GetScan returns the scan pipeline configuration
func (c *Config) GetScan() ScanConfig {
	return ScanConfig{
		MaxURLScans:        c.GetInt("scan.max_url_scans"),
		WhitelistedDomains: c.GetStringSlice("scan.whitelisted_domains"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetStore returns the batch store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetGateway returns the SMTP gateway configuration
func (c *Config) GetGateway() GatewayConfig {
	return GatewayConfig{
		ListenAddress:    c.GetString("gateway.listen_address"),
		BlockHigh:        c.GetBool("gateway.block_high"),
		UpstreamAddr:     c.GetString("gateway.upstream_addr"),
		UpstreamPort:     c.GetInt("gateway.upstream_port"),
		UpstreamEnabled:  c.GetBool("gateway.upstream_enabled"),
		VerdictHeader:    c.GetString("gateway.headers.verdict"),
		LabelHeader:      c.GetString("gateway.headers.label"),
		ConfidenceHeader: c.GetString("gateway.headers.confidence"),
	}
}

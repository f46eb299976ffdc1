package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all rundemo configuration.
type Config struct {
	Listen       string           `yaml:"listen"`
	DBPath       string           `yaml:"db_path"`
	LogLevel     string           `yaml:"log_level"`
	Project      string           `yaml:"project"`
	ReadTimeout  time.Duration    `yaml:"read_timeout"`
	WriteTimeout time.Duration    `yaml:"write_timeout"`
	Deployment   DeploymentConfig `yaml:"deployment"`
	Secrets      SecretsConfig    `yaml:"secrets"`
	Chat         ChatConfig       `yaml:"chat"`
	Stress       StressConfig     `yaml:"stress"`
	Usage        UsageConfig      `yaml:"usage"`
	Telemetry    TelemetryConfig  `yaml:"telemetry"`

	// onPlatform is set when the platform injected its service identifier.
	onPlatform bool
}

// DeploymentConfig identifies the running revision. Values are normally
// injected by the hosting platform.
type DeploymentConfig struct {
	Service       string `yaml:"service"`
	Revision      string `yaml:"revision"`
	Configuration string `yaml:"configuration"`
	Region        string `yaml:"region"`
	Memory        string `yaml:"memory"`
	CPU           string `yaml:"cpu"`
}

// SecretsConfig controls access to the secret store.
type SecretsConfig struct {
	// CredentialsFile points at a service account key. Empty means ambient
	// platform credentials.
	CredentialsFile string `yaml:"credentials_file"`
	// Endpoint overrides the store endpoint (emulators). Requests to a custom
	// endpoint are sent without authentication.
	Endpoint string        `yaml:"endpoint"`
	KeyName  string        `yaml:"key_name"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ChatConfig defines the upstream completion service.
type ChatConfig struct {
	URL          string  `yaml:"url"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// StressConfig bounds the synthetic workload.
type StressConfig struct {
	DefaultIterations int `yaml:"default_iterations"`
	MaxIterations     int `yaml:"max_iterations"`
}

// UsageConfig controls token usage tracking.
type UsageConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// DefaultSystemPrompt is the fixed instruction sent ahead of every chat message.
const DefaultSystemPrompt = "You are a helpful assistant running on Google Cloud Run. Keep responses concise and friendly."

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:       ":8080",
		DBPath:       "rundemo.db",
		LogLevel:     "info",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		Deployment: DeploymentConfig{
			Service:       "local",
			Revision:      "local",
			Configuration: "local",
		},
		Secrets: SecretsConfig{
			KeyName:  "OPENAI_API_KEY",
			CacheTTL: 5 * time.Minute,
		},
		Chat: ChatConfig{
			URL:          "https://api.openai.com",
			Model:        "gpt-3.5-turbo",
			MaxTokens:    150,
			Temperature:  0.7,
			SystemPrompt: DefaultSystemPrompt,
		},
		Stress: StressConfig{
			DefaultIterations: 1_000_000,
			MaxIterations:     1_000_000_000,
		},
		Usage: UsageConfig{
			Enabled: true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "rundemo",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays platform-provided environment variables on top of cfg.
// Where two variables name the same option the first one present wins.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
	set := func(dst *string, keys ...string) {
		if v, ok := get(keys...); ok {
			*dst = v
		}
	}

	if port, ok := get("PORT"); ok {
		c.Listen = ":" + port
	}
	set(&c.DBPath, "RUNDEMO_DB_PATH")
	set(&c.LogLevel, "RUNDEMO_LOG_LEVEL")
	set(&c.Project, "GOOGLE_CLOUD_PROJECT", "GCP_PROJECT")

	if _, ok := get("K_SERVICE"); ok {
		c.onPlatform = true
	}
	set(&c.Deployment.Service, "K_SERVICE")
	set(&c.Deployment.Revision, "K_REVISION")
	set(&c.Deployment.Configuration, "K_CONFIGURATION")
	set(&c.Deployment.Region, "CLOUD_RUN_REGION", "REGION")
	set(&c.Deployment.Memory, "MEMORY_LIMIT")
	set(&c.Deployment.CPU, "CPU_LIMIT")

	set(&c.Secrets.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	set(&c.Secrets.Endpoint, "RUNDEMO_SECRETS_ENDPOINT")
	set(&c.Secrets.KeyName, "RUNDEMO_KEY_SECRET")

	set(&c.Chat.URL, "RUNDEMO_CHAT_URL")

	set(&c.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	set(&c.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
}

// IsAuthenticated reports whether secret store credentials are expected to be
// discoverable: an explicit key file, or running on the platform.
func (c *Config) IsAuthenticated() bool {
	return c.Secrets.CredentialsFile != "" || c.onPlatform
}

// Validate checks that numeric options are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Secrets.CacheTTL <= 0 {
		errs = append(errs, errors.New("secrets.cache_ttl must be positive"))
	}
	if c.Chat.MaxTokens <= 0 {
		errs = append(errs, errors.New("chat.max_tokens must be positive"))
	}
	if c.Stress.DefaultIterations <= 0 {
		errs = append(errs, errors.New("stress.default_iterations must be positive"))
	}
	if c.Stress.MaxIterations < c.Stress.DefaultIterations {
		errs = append(errs, errors.New("stress.max_iterations must not be below stress.default_iterations"))
	}
	if c.Secrets.KeyName == "" {
		errs = append(errs, errors.New("secrets.key_name is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

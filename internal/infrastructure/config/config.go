package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	HTTP           HTTPConfig
	Log            LogConfig
	Salesforce     SalesforceConfig
	Reconciliation ReconciliationConfig
	Telemetry      TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	RateLimitEnabled bool
	RateLimitRPS     float64 // sustained requests per second per client
	RateLimitBurst   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	ShutdownTimeout  time.Duration
	BasePath         string // route prefix; empty serves the API at the root
	HSTSEnabled      bool
}

// SalesforceConfig holds the credentials and endpoint settings for the CRM.
// Credentials are usually injected from a secret manager through the
// SF_* environment variables.
type SalesforceConfig struct {
	Username          string
	ConsumerKey       string
	Domain            string // "login", "test", or a My Domain prefix such as "acme.my"
	PrivateKeyContent string // PEM encoded RSA key
	PrivateKeyFile    string // alternative to PrivateKeyContent
	APIVersion        string
	LoginURL          string // overrides the URL derived from Domain
	RequestTimeout    time.Duration
	AssertionTTL      time.Duration
	ReauthOnExpiry    bool
	AuthBreaker       BreakerConfig
}

// BreakerConfig configures the optional circuit breaker around the OAuth handshake
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// ReconciliationConfig tunes the wait for the Flow-created Account
type ReconciliationConfig struct {
	InitialDelay time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	Budget       time.Duration // hard cap over the whole wait and link
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// legacyEnv maps config keys to the environment variable names the service
// has always been deployed with.
var legacyEnv = map[string]string{
	"salesforce.username":            "SF_USERNAME",
	"salesforce.consumer_key":        "SF_CONSUMER_KEY",
	"salesforce.domain":              "SF_DOMAIN",
	"salesforce.private_key_content": "SF_PRIVATE_KEY_CONTENT",
	"app.port":                       "PORT",
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CRMGW_ prefix (e.g., CRMGW_SALESFORCE_API_VERSION)
// 2. Deployment variables SF_USERNAME, SF_CONSUMER_KEY, SF_DOMAIN, SF_PRIVATE_KEY_CONTENT, PORT
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CRMGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "CRMGW_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:     v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			BasePath:         v.GetString("http.base_path"),
			HSTSEnabled:      v.GetBool("http.hsts_enabled"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Salesforce: SalesforceConfig{
			Username:          v.GetString("salesforce.username"),
			ConsumerKey:       v.GetString("salesforce.consumer_key"),
			Domain:            v.GetString("salesforce.domain"),
			PrivateKeyContent: v.GetString("salesforce.private_key_content"),
			PrivateKeyFile:    v.GetString("salesforce.private_key_file"),
			APIVersion:        v.GetString("salesforce.api_version"),
			LoginURL:          v.GetString("salesforce.login_url"),
			RequestTimeout:    v.GetDuration("salesforce.request_timeout"),
			AssertionTTL:      v.GetDuration("salesforce.assertion_ttl"),
			ReauthOnExpiry:    v.GetBool("salesforce.reauth_on_expired_session"),
			AuthBreaker: BreakerConfig{
				Enabled:          v.GetBool("salesforce.auth_breaker.enabled"),
				FailureThreshold: v.GetUint32("salesforce.auth_breaker.failure_threshold"),
				OpenTimeout:      v.GetDuration("salesforce.auth_breaker.open_timeout"),
			},
		},
		Reconciliation: ReconciliationConfig{
			InitialDelay: v.GetDuration("reconciliation.initial_delay"),
			PollInterval: v.GetDuration("reconciliation.poll_interval"),
			MaxAttempts:  v.GetInt("reconciliation.max_attempts"),
			Budget:       v.GetDuration("reconciliation.budget"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.loadPrivateKeyFile(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sofia-salesforce-api"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Contact creation waits for the Flow before answering, so the write
	// timeout has to outlast the reconciliation budget.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRPS == 0 {
		cfg.HTTP.RateLimitRPS = 10
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 20
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Salesforce.APIVersion == "" {
		cfg.Salesforce.APIVersion = "59.0"
	}
	if cfg.Salesforce.RequestTimeout == 0 {
		cfg.Salesforce.RequestTimeout = 30 * time.Second
	}
	if cfg.Salesforce.AssertionTTL == 0 {
		cfg.Salesforce.AssertionTTL = 3 * time.Minute
	}
	if cfg.Salesforce.AuthBreaker.FailureThreshold == 0 {
		cfg.Salesforce.AuthBreaker.FailureThreshold = 5
	}
	if cfg.Salesforce.AuthBreaker.OpenTimeout == 0 {
		cfg.Salesforce.AuthBreaker.OpenTimeout = 30 * time.Second
	}
	if cfg.Reconciliation.InitialDelay == 0 {
		cfg.Reconciliation.InitialDelay = 5 * time.Second
	}
	if cfg.Reconciliation.PollInterval == 0 {
		cfg.Reconciliation.PollInterval = 2 * time.Second
	}
	if cfg.Reconciliation.MaxAttempts == 0 {
		cfg.Reconciliation.MaxAttempts = 3
	}
	if cfg.Reconciliation.Budget == 0 {
		cfg.Reconciliation.Budget = 30 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// loadPrivateKeyFile reads the key from disk when no inline key was given
func (c *Config) loadPrivateKeyFile() error {
	if c.Salesforce.PrivateKeyContent != "" || c.Salesforce.PrivateKeyFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.Salesforce.PrivateKeyFile)
	if err != nil {
		return fmt.Errorf("reading salesforce.private_key_file: %w", err)
	}
	c.Salesforce.PrivateKeyContent = string(data)
	return nil
}

// MissingSalesforceSecrets lists the deployment variables that are empty
func (c *Config) MissingSalesforceSecrets() []string {
	var missing []string
	if c.Salesforce.Username == "" {
		missing = append(missing, "SF_USERNAME")
	}
	if c.Salesforce.ConsumerKey == "" {
		missing = append(missing, "SF_CONSUMER_KEY")
	}
	if c.Salesforce.Domain == "" && c.Salesforce.LoginURL == "" {
		missing = append(missing, "SF_DOMAIN")
	}
	if c.Salesforce.PrivateKeyContent == "" {
		missing = append(missing, "SF_PRIVATE_KEY_CONTENT")
	}
	return missing
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if missing := c.MissingSalesforceSecrets(); len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Reconciliation.MaxAttempts < 1 {
		return fmt.Errorf("reconciliation.max_attempts must be positive")
	}
	if c.Reconciliation.InitialDelay < 0 || c.Reconciliation.PollInterval < 0 {
		return fmt.Errorf("reconciliation delays cannot be negative")
	}
	if c.HTTP.RateLimitRPS < 0 || c.HTTP.RateLimitBurst < 0 {
		return fmt.Errorf("http rate limit settings cannot be negative")
	}

	if c.App.Env == "production" {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

package salesforce

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the endpoint and behaviour settings for the Salesforce adapter.
// Credentials are supplied separately by a CredentialProvider.
type Config struct {
	// APIVersion is the REST API version, without the leading "v"
	APIVersion string
	// LoginURL overrides the login host derived from the credentials' domain
	LoginURL string
	// RequestTimeout bounds each HTTP exchange with the platform
	RequestTimeout time.Duration
	// AssertionTTL is the lifetime of the signed JWT assertion
	AssertionTTL time.Duration
	// ReauthOnExpiry drops the cached session when a call reports it expired
	ReauthOnExpiry bool
	// Breaker configures the optional circuit breaker around the handshake
	Breaker BreakerConfig
}

// BreakerConfig configures the handshake circuit breaker
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

const (
	// DefaultAPIVersion is the REST API version used when none is configured
	DefaultAPIVersion = "59.0"
	// maxResponseSize caps how much of a platform response is read (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// Errors for Salesforce configuration
var (
	ErrMissingUsername    = errors.New("salesforce: username is required")
	ErrMissingConsumerKey = errors.New("salesforce: consumer key is required")
	ErrMissingDomain      = errors.New("salesforce: domain is required")
	ErrMissingPrivateKey  = errors.New("salesforce: private key is required")
)

// NewConfig creates a configuration with defaults
func NewConfig() *Config {
	return &Config{
		APIVersion:     DefaultAPIVersion,
		RequestTimeout: 30 * time.Second,
		AssertionTTL:   3 * time.Minute,
	}
}

// withDefaults fills zero values without mutating the receiver
func (c *Config) withDefaults() *Config {
	out := *c
	if out.APIVersion == "" {
		out.APIVersion = DefaultAPIVersion
	}
	out.APIVersion = strings.TrimPrefix(out.APIVersion, "v")
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 30 * time.Second
	}
	if out.AssertionTTL <= 0 {
		out.AssertionTTL = 3 * time.Minute
	}
	if out.Breaker.FailureThreshold == 0 {
		out.Breaker.FailureThreshold = 5
	}
	if out.Breaker.OpenTimeout <= 0 {
		out.Breaker.OpenTimeout = 30 * time.Second
	}
	return &out
}

// loginBaseURL returns the OAuth host for the given credentials
func (c *Config) loginBaseURL(creds Credentials) string {
	if c.LoginURL != "" {
		return strings.TrimRight(c.LoginURL, "/")
	}
	return fmt.Sprintf("https://%s.salesforce.com", creds.Domain)
}

// tokenURL is the OAuth 2.0 token endpoint
func (c *Config) tokenURL(creds Credentials) string {
	return c.loginBaseURL(creds) + "/services/oauth2/token"
}

// dataPath is the REST API root relative to the instance URL
func (c *Config) dataPath() string {
	return "/services/data/v" + c.APIVersion
}

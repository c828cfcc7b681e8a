package config

import (
	"strings"
	"time"
)

const (
	defaultBackendTimeout     = 30 * time.Second
	defaultBackendConcurrency = 4
	maxBackendRetries         = 5
)

// BackendConfig configures the pipeline backend client.
type BackendConfig struct {
	// BaseURL is the root of the pipeline REST API, e.g. "http://pipeline:8000/api/v1".
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// Retries is the number of extra attempts for idempotent GETs that fail with
	// a transport error or 5xx.
	Retries int `env:"RETRIES" envDefault:"2"`

	// MaxConcurrency bounds parallel sub-job result fetches.
	MaxConcurrency int `env:"MAX_CONCURRENCY" envDefault:"4"`

	// OAuth2 client credentials. Auth is disabled unless ClientID and TokenURL are set.
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	TokenURL     string   `env:"TOKEN_URL"`
	Scopes       []string `env:"SCOPES"`
}

// Sanitize applies guardrails to backend client values.
func (b *BackendConfig) Sanitize() {
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if b.Timeout <= 0 {
		b.Timeout = defaultBackendTimeout
	}
	if b.Retries < 0 {
		b.Retries = 0
	}
	if b.Retries > maxBackendRetries {
		b.Retries = maxBackendRetries
	}
	if b.MaxConcurrency < 1 {
		b.MaxConcurrency = defaultBackendConcurrency
	}
	b.ClientID = strings.TrimSpace(b.ClientID)
	b.TokenURL = strings.TrimSpace(b.TokenURL)
}

// OAuthEnabled reports whether client-credentials auth is configured.
func (b *BackendConfig) OAuthEnabled() bool {
	return b.ClientID != "" && b.TokenURL != ""
}

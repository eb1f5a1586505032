// Package provider abstracts the AI backends that analyze a lineup context.
// Callers depend only on the Provider interface; every implementation
// returns plain text that the analysis normalizer parses identically.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fantasyops/lineupai/analysis"
	"github.com/fantasyops/lineupai/config"
	"github.com/fantasyops/lineupai/httpx"
	"github.com/rs/zerolog"
)

// Provider turns an analysis context into raw recommendation text.
type Provider interface {
	// Name identifies the backend for result metadata and error messages.
	Name() string

	// Analyze renders the context and returns the model's raw text. The
	// text is not validated here; that is the normalizer's job.
	Analyze(ctx context.Context, ac *analysis.Context) (string, error)
}

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	// MissingCredential means no API key is configured for the provider.
	MissingCredential ErrorKind = iota

	// UpstreamFailure means the provider call failed after transport
	// retries were exhausted.
	UpstreamFailure

	// QuotaExceeded means the provider signaled a rate or budget limit.
	QuotaExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case MissingCredential:
		return "missing credential"
	case UpstreamFailure:
		return "upstream failure"
	case QuotaExceeded:
		return "quota exceeded"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by real providers.
type Error struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// classifyStatus maps an upstream HTTP status onto an error kind. 429 and
// 402 are quota signals; 401/403 mean the configured credential is bad.
func classifyStatus(name string, status int, err error) *Error {
	switch status {
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return &Error{Provider: name, Kind: QuotaExceeded, Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Provider: name, Kind: MissingCredential, Err: err}
	default:
		return &Error{Provider: name, Kind: UpstreamFailure, Err: err}
	}
}

// New constructs the provider selected by cfg.AIProvider. Real providers
// route all traffic through the shared retrying transport; unknown names
// fall back to the mock so keyless users always get a working pipeline.
func New(cfg *config.AppConfig, transport *httpx.Transport, log zerolog.Logger) Provider {
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.AIAPIKey, transport, log)
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.AIAPIKey, transport, log)
	case config.ProviderMock:
		return NewMock()
	default:
		log.Warn().Str("provider", cfg.AIProvider).Msg("unknown ai provider, using mock")
		return NewMock()
	}
}

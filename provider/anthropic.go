package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/fantasyops/lineupai/analysis"
	"github.com/fantasyops/lineupai/httpx"
)

const (
	anthropicModel     = "claude-sonnet-4-20250514"
	anthropicMaxTokens = 3000
)

// Anthropic analyzes lineups with the Claude Messages API. Transport-level
// retries come from the shared retrying transport, so the SDK's own retry
// loop is disabled.
type Anthropic struct {
	client anthropic.Client
	hasKey bool
	log    zerolog.Logger
}

// NewAnthropic builds the Anthropic provider over the shared transport.
func NewAnthropic(apiKey string, transport *httpx.Transport, log zerolog.Logger) *Anthropic {
	return &Anthropic{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(&http.Client{Transport: transport}),
			option.WithMaxRetries(0),
		),
		hasKey: apiKey != "",
		log:    log.With().Str("component", "provider").Str("provider", "anthropic").Logger(),
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Analyze(ctx context.Context, ac *analysis.Context) (string, error) {
	if !a.hasKey {
		return "", &Error{Provider: a.Name(), Kind: MissingCredential}
	}

	prompt := analysis.RenderPrompt(ac)
	a.log.Info().Int("week", ac.Week).Msg("requesting analysis from claude")

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(anthropicModel),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: analysis.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classify(a.Name(), err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// classify maps Anthropic SDK failures onto the provider error taxonomy.
func classify(name string, err error) *Error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return classifyStatus(name, apierr.StatusCode, err)
	}
	return &Error{Provider: name, Kind: UpstreamFailure, Err: err}
}

package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/fantasyops/lineupai/analysis"
	"github.com/fantasyops/lineupai/httpx"
)

const openaiModel = openai.ChatModelGPT4o

// OpenAI analyzes lineups with the Chat Completions API. As with the
// Anthropic provider, retries live in the shared transport and the SDK's
// own retry loop is disabled.
type OpenAI struct {
	client openai.Client
	hasKey bool
	log    zerolog.Logger
}

// NewOpenAI builds the OpenAI provider over the shared transport.
func NewOpenAI(apiKey string, transport *httpx.Transport, log zerolog.Logger) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(&http.Client{Transport: transport}),
			option.WithMaxRetries(0),
		),
		hasKey: apiKey != "",
		log:    log.With().Str("component", "provider").Str("provider", "openai").Logger(),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Analyze(ctx context.Context, ac *analysis.Context) (string, error) {
	if !o.hasKey {
		return "", &Error{Provider: o.Name(), Kind: MissingCredential}
	}

	prompt := analysis.RenderPrompt(ac)
	o.log.Info().Int("week", ac.Week).Msg("requesting analysis from gpt")

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openaiModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(analysis.SystemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", classifyStatus(o.Name(), apierr.StatusCode, err)
		}
		return "", &Error{Provider: o.Name(), Kind: UpstreamFailure, Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Provider: o.Name(), Kind: UpstreamFailure, Err: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}

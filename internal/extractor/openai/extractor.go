// Package openai resolves shopping messages with an OpenAI-compatible chat
// completion endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/extractor"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT4oMini

const systemPrompt = `Extract product search parameters from the user's message and reply with JSON only:
{"query": string or null, "filters": {"category": string or null, "brand": string or null,
"target_audience": string or null, "color": string or null, "min_price": number or null,
"max_price": number or null}}

Examples:
"2000tl bütçem var spor ayakkabı arıyorum" -> {"query": "spor ayakkabı", "filters": {"max_price": 2000, "category": "Ayakkabı"}}
"Nike marka 1000-3000 TL arası ayakkabı" -> {"query": "ayakkabı", "filters": {"brand": "Nike", "min_price": 1000, "max_price": 3000, "category": "Ayakkabı"}}

Rules: prices are numbers, never strings. A budget alone is max_price. Leave unknown values null, never empty strings.`

// Config holds the chat completion settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient replaces the library's default client when set.
	HTTPClient *http.Client
}

// Extractor implements extractor.Extractor.
type Extractor struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

var _ extractor.Extractor = (*Extractor)(nil)

// New creates an extractor. An empty BaseURL keeps the library default.
func New(cfg Config, logger *slog.Logger) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// Extract asks the model for {query, filters} and validates the reply.
func (e *Extractor) Extract(ctx context.Context, message string) (domain.SearchRequest, error) {
	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return domain.SearchRequest{}, describeError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.SearchRequest{}, fmt.Errorf("chat completion returned no choices")
	}

	req, err := extractor.ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.SearchRequest{}, err
	}

	e.logger.DebugContext(ctx, "intent extracted",
		slog.String("model", e.model),
		slog.String("query", req.Query),
		slog.Duration("duration", time.Since(start)),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return req, nil
}

func describeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat completion request error %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("chat completion: %w", err)
}

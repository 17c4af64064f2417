// Package extractor turns free-text shopping messages into search requests.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Daption-ciray/proapp/internal/domain"
)

// Extractor resolves a message into a structured search request.
type Extractor interface {
	Extract(ctx context.Context, message string) (domain.SearchRequest, error)
}

// Fallback is the request used when extraction fails: the whole message as
// the full-text query and no filters.
func Fallback(message string) domain.SearchRequest {
	return domain.SearchRequest{Query: strings.TrimSpace(message)}
}

// ParseResponse decodes an extractor response of the form
// {"query": ..., "filters": {...}}. Markdown code fences are tolerated.
// Filter values go through domain.ParseFilterSet, so malformed values are
// dropped rather than rejected.
func ParseResponse(content string) (domain.SearchRequest, error) {
	content = stripFences(content)

	var raw struct {
		Query   *string        `json:"query"`
		Filters map[string]any `json:"filters"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return domain.SearchRequest{}, fmt.Errorf("decode extractor response: %w", err)
	}

	req := domain.SearchRequest{Filters: domain.ParseFilterSet(raw.Filters)}
	if raw.Query != nil {
		req.Query = strings.TrimSpace(*raw.Query)
	}
	return req, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Resilient wraps an Extractor so that extraction never fails.
type Resilient struct {
	inner  Extractor
	logger *slog.Logger
}

// NewResilient wraps inner. A nil inner always yields Fallback.
func NewResilient(inner Extractor, logger *slog.Logger) *Resilient {
	return &Resilient{inner: inner, logger: logger}
}

// Extract returns the inner extractor's request, or Fallback(message) when
// it fails.
func (r *Resilient) Extract(ctx context.Context, message string) (domain.SearchRequest, error) {
	if r.inner == nil {
		return Fallback(message), nil
	}
	req, err := r.inner.Extract(ctx, message)
	if err != nil {
		r.logger.WarnContext(ctx, "intent extraction failed, searching raw message",
			slog.String("error", err.Error()),
		)
		return Fallback(message), nil
	}
	return req, nil
}

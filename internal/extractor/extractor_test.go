package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daption-ciray/proapp/internal/domain"
)

func TestParseResponse(t *testing.T) {
	req, err := ParseResponse(`{"query":"spor ayakkabı","filters":{"max_price":2000,"category":"Ayakkabı","brand":null,"min_price":""}}`)
	require.NoError(t, err)

	assert.Equal(t, "spor ayakkabı", req.Query)
	require.NotNil(t, req.Filters.Category)
	assert.Equal(t, "Ayakkabı", *req.Filters.Category)
	require.NotNil(t, req.Filters.MaxPrice)
	assert.Equal(t, 2000.0, *req.Filters.MaxPrice)
	assert.Nil(t, req.Filters.Brand)
	assert.Nil(t, req.Filters.MinPrice)
}

func TestParseResponse_CodeFenceAndNullQuery(t *testing.T) {
	req, err := ParseResponse("```json\n{\"query\":null,\"filters\":{\"brand\":\"Nike\"}}\n```")
	require.NoError(t, err)
	assert.True(t, req.IsMatchAll())
	require.NotNil(t, req.Filters.Brand)
	assert.Equal(t, "Nike", *req.Filters.Brand)
}

func TestParseResponse_NotJSON(t *testing.T) {
	_, err := ParseResponse("Sorry, I can't help with that.")
	assert.Error(t, err)
}

type stubExtractor struct {
	req domain.SearchRequest
	err error
}

func (s stubExtractor) Extract(context.Context, string) (domain.SearchRequest, error) {
	return s.req, s.err
}

func TestResilient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	ok := NewResilient(stubExtractor{req: domain.SearchRequest{Query: "laptop"}}, logger)
	req, err := ok.Extract(ctx, "bana laptop bul")
	require.NoError(t, err)
	assert.Equal(t, "laptop", req.Query)

	failing := NewResilient(stubExtractor{err: errors.New("rate limited")}, logger)
	req, err = failing.Extract(ctx, "  bana laptop bul ")
	require.NoError(t, err)
	assert.Equal(t, Fallback("bana laptop bul"), req)
	assert.False(t, req.Filters.HasConcreteFilter())

	none := NewResilient(nil, logger)
	req, err = none.Extract(ctx, "elbise")
	require.NoError(t, err)
	assert.Equal(t, "elbise", req.Query)
}

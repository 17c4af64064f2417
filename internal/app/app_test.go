package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daption-ciray/proapp/internal/config"
	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/pkg/health"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memoryConfig(t *testing.T, envs map[string]string) *config.Config {
	t.Helper()
	t.Setenv("SEARCH_ENGINE", "memory")
	t.Setenv("PREFERENCE_STORE", "memory")
	t.Setenv("CACHE_ENABLED", "false")
	for k, v := range envs {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

var products = []domain.Product{
	{ID: "l1", Brand: "Lenovo", Model: "IdeaPad", Price: 18999, Category: "Laptop"},
	{ID: "a1", Brand: "Apple", Model: "MacBook Air", Price: 42999, Category: "Laptop"},
}

func TestBuild_InMemory(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, memoryConfig(t, nil), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })

	assert.Nil(t, c.Extractor)
	assert.Empty(t, c.Health.Names())

	require.NoError(t, c.Search.ImportProducts(ctx, products))
	res := c.Search.Search(ctx, domain.SearchRequest{Query: "laptop"}, "u1")
	assert.Len(t, res.Hits, 2)

	c.recorder.Wait()
	hist, err := c.Preferences.History(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestBuild_BleveWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	c, err := Build(ctx, memoryConfig(t, map[string]string{
		"SEARCH_ENGINE": "bleve",
		"CACHE_ENABLED": "true",
		"REDIS_ADDR":    mr.Addr(),
	}), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })

	assert.Equal(t, []string{"bleve", "redis"}, c.Health.Names())
	assert.Equal(t, health.StatusUp, c.Health.Check(ctx).Status)

	require.NoError(t, c.Search.ImportProducts(ctx, products))
	first := c.Search.Search(ctx, domain.SearchRequest{Query: "laptop"}, "")
	require.NotEmpty(t, first.Hits)
	second := c.Search.Search(ctx, domain.SearchRequest{Query: "laptop"}, "")
	assert.True(t, second.Cached)
}

func TestBuild_UnreachableRedisDisablesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx := context.Background()
	c, err := Build(ctx, memoryConfig(t, map[string]string{
		"CACHE_ENABLED": "true",
		"REDIS_ADDR":    addr,
	}), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Search.ImportProducts(ctx, products))
	c.Search.Search(ctx, domain.SearchRequest{Query: "laptop"}, "")
	again := c.Search.Search(ctx, domain.SearchRequest{Query: "laptop"}, "")
	assert.False(t, again.Cached)
	assert.Equal(t, health.StatusDegraded, c.Health.Check(ctx).Status)
}

func TestBuild_OpenAIExtractorConfigured(t *testing.T) {
	c, err := Build(context.Background(), memoryConfig(t, map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"OPENAI_BASE_URL": "http://127.0.0.1:0/v1",
	}), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.NotNil(t, c.Extractor)
}

func TestBuild_UnreachableElasticsearchFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Build(context.Background(), memoryConfig(t, map[string]string{
		"SEARCH_ENGINE":     "elasticsearch",
		"ELASTICSEARCH_URL": url,
	}), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init elasticsearch engine")
}

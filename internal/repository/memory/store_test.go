package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daption-ciray/proapp/internal/domain"
)

func TestStore_GetPreferences_CreatesDefault(t *testing.T) {
	s := NewStore()
	p, err := s.GetPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.NotNil(t, p.FavoriteCategories)
	assert.Empty(t, p.PreferredBrands)

	again, err := s.GetPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt, again.CreatedAt)
}

func TestStore_UpdatePreferences_LeavesAbsentFields(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	brands := []string{"Nike", "Adidas"}
	_, err := s.UpdatePreferences(ctx, "u1", domain.PreferencesUpdate{PreferredBrands: &brands})
	require.NoError(t, err)

	band := domain.PriceBand{Min: domain.FloatPtr(100)}
	p, err := s.UpdatePreferences(ctx, "u1", domain.PreferencesUpdate{PriceRange: &band})
	require.NoError(t, err)
	assert.Equal(t, []string{"Adidas", "Nike"}, p.PreferredBrands)
	require.NotNil(t, p.PriceRange.Min)
	assert.Equal(t, 100.0, *p.PriceRange.Min)
}

func TestStore_ReturnedPreferencesAreCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	brands := []string{"Nike"}
	p, err := s.UpdatePreferences(ctx, "u1", domain.PreferencesUpdate{PreferredBrands: &brands})
	require.NoError(t, err)
	p.PreferredBrands[0] = "Puma"

	again, err := s.GetPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Nike"}, again.PreferredBrands)
}

func TestStore_RecentHistory_NewestFirstAndLimited(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		require.NoError(t, s.AppendHistory(ctx, &domain.SearchHistoryEntry{
			UserID:    "u1",
			Query:     fmt.Sprintf("q%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.AppendHistory(ctx, &domain.SearchHistoryEntry{UserID: "u2", Query: "other"}))

	got, err := s.RecentHistory(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "q14", got[0].Query)
	assert.Equal(t, "q5", got[9].Query)
	assert.NotEmpty(t, got[0].ID)

	got, err = s.RecentHistory(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestStore_AppendHistory_IgnoresDuplicateID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	entry := domain.SearchHistoryEntry{ID: "evt-1", UserID: "u1", Filters: domain.FilterSet{Brand: domain.StringPtr("Nike")}}

	first, again := entry, entry
	require.NoError(t, s.AppendHistory(ctx, &first))
	require.NoError(t, s.AppendHistory(ctx, &again))

	got, err := s.RecentHistory(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_RecentHistory_Unknown(t *testing.T) {
	got, err := NewStore().RecentHistory(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore().GetPreferences(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AppendHistory(context.Background(), &domain.SearchHistoryEntry{UserID: "u1"})
		}()
	}
	wg.Wait()

	got, err := s.RecentHistory(context.Background(), "u1", 100)
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

package personalization

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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func prefs() *domain.UserPreferences {
	p := domain.DefaultPreferences("u1")
	p.PreferredBrands = []string{"Nike", "Adidas"}
	p.FavoriteCategories = []string{"Ayakkabı"}
	return p
}

func TestMerge_AddsAdvisorySetsWhenDimensionsAbsent(t *testing.T) {
	got := Merge(domain.FilterSet{Color: domain.StringPtr("siyah")}, prefs())

	assert.Equal(t, []string{"Adidas", "Nike"}, got.PreferredBrands)
	assert.Equal(t, []string{"Ayakkabı"}, got.PreferredCategories)
	assert.Equal(t, "siyah", *got.Color)
	assert.Nil(t, got.Brand)
}

func TestMerge_ExplicitBrandTakesPrecedence(t *testing.T) {
	in := domain.FilterSet{Brand: domain.StringPtr("Puma"), PreferredBrands: []string{"Nike"}}
	got := Merge(in, prefs())

	require.NotNil(t, got.Brand)
	assert.Equal(t, "Puma", *got.Brand)
	assert.Nil(t, got.PreferredBrands)
	assert.Equal(t, []string{"Ayakkabı"}, got.PreferredCategories)
}

func TestMerge_ExplicitCategoryTakesPrecedence(t *testing.T) {
	got := Merge(domain.FilterSet{Category: domain.StringPtr("Laptop")}, prefs())

	assert.Equal(t, "Laptop", *got.Category)
	assert.Nil(t, got.PreferredCategories)
	assert.Equal(t, []string{"Adidas", "Nike"}, got.PreferredBrands)
}

func TestMerge_Idempotent(t *testing.T) {
	cases := []domain.FilterSet{
		{},
		{Brand: domain.StringPtr("Puma")},
		{Category: domain.StringPtr("Laptop"), MaxPrice: domain.FloatPtr(20000)},
		{PreferredBrands: []string{"Zara"}},
	}
	for _, in := range cases {
		once := Merge(in, prefs())
		twice := Merge(once, prefs())
		assert.Equal(t, once, twice)
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := domain.FilterSet{Color: domain.StringPtr("siyah")}
	_ = Merge(in, prefs())
	assert.Nil(t, in.PreferredBrands)
	assert.Nil(t, in.PreferredCategories)
}

func TestMerge_EmptyPreferencesLeaveFiltersAlone(t *testing.T) {
	in := domain.FilterSet{PreferredBrands: []string{"Zara"}}
	got := Merge(in, domain.DefaultPreferences("u1"))
	assert.Equal(t, []string{"Zara"}, got.PreferredBrands)

	assert.Equal(t, in, Merge(in, nil))
}

type stubSource struct {
	prefs *domain.UserPreferences
	err   error
	calls int
}

func (s *stubSource) GetPreferences(context.Context, string) (*domain.UserPreferences, error) {
	s.calls++
	return s.prefs, s.err
}

func TestMerger_NoUserPassesThrough(t *testing.T) {
	src := &stubSource{prefs: prefs()}
	m := NewMerger(src, testLogger())

	in := domain.FilterSet{Brand: domain.StringPtr("Nike")}
	assert.Equal(t, in, m.Apply(context.Background(), in, ""))
	assert.Zero(t, src.calls)
}

func TestMerger_StoreFailureFallsBack(t *testing.T) {
	m := NewMerger(&stubSource{err: errors.New("db down")}, testLogger())

	in := domain.FilterSet{Color: domain.StringPtr("siyah")}
	got := m.Apply(context.Background(), in, "u1")
	assert.Equal(t, in, got)
}

func TestMerger_AppliesStoredPreferences(t *testing.T) {
	m := NewMerger(&stubSource{prefs: prefs()}, testLogger())

	got := m.Apply(context.Background(), domain.FilterSet{}, "u1")
	assert.Equal(t, []string{"Adidas", "Nike"}, got.PreferredBrands)
}

package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daption-ciray/proapp/internal/domain"
)

var prefColumns = []string{"user_id", "favorite_categories", "preferred_brands", "price_range", "created_at", "updated_at"}

var historyColumns = []string{"id", "user_id", "query", "filters", "results_count", "created_at"}

func newStoreFixture(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewStore(mock, nil), mock
}

func prefRow(userID, cats, brands, band string) *pgxmock.Rows {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(prefColumns).
		AddRow(userID, []byte(cats), []byte(brands), []byte(band), ts, ts)
}

func TestStore_GetPreferences_Existing(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM user_preferences").
		WithArgs("u1").
		WillReturnRows(prefRow("u1", `["Laptop"]`, `["Apple","Lenovo"]`, `{"min":1000,"max":null}`))

	prefs, err := store.GetPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", prefs.UserID)
	assert.Equal(t, []string{"Laptop"}, prefs.FavoriteCategories)
	assert.Equal(t, []string{"Apple", "Lenovo"}, prefs.PreferredBrands)
	require.NotNil(t, prefs.PriceRange.Min)
	assert.Equal(t, 1000.0, *prefs.PriceRange.Min)
	assert.Nil(t, prefs.PriceRange.Max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetPreferences_CreatesDefault(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM user_preferences").
		WithArgs("u2").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO user_preferences").
		WithArgs("u2", []byte(`[]`), []byte(`[]`), []byte(`{"min":null,"max":null}`), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM user_preferences").
		WithArgs("u2").
		WillReturnRows(prefRow("u2", `[]`, `[]`, `{"min":null,"max":null}`))

	prefs, err := store.GetPreferences(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", prefs.UserID)
	assert.NotNil(t, prefs.FavoriteCategories)
	assert.Empty(t, prefs.FavoriteCategories)
	assert.Empty(t, prefs.PreferredBrands)
	assert.Nil(t, prefs.PriceRange.Min)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetPreferences_QueryError(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM user_preferences").
		WithArgs("u1").
		WillReturnError(errors.New("connection refused"))

	_, err := store.GetPreferences(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get preferences")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdatePreferences_Partial(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM user_preferences").
		WithArgs("u1").
		WillReturnRows(prefRow("u1", `[]`, `["Nike"]`, `{"min":null,"max":null}`))
	mock.ExpectExec("UPDATE user_preferences").
		WithArgs("u1", []byte(`["Ayakkabı","Laptop"]`), []byte(`["Nike"]`), []byte(`{"min":null,"max":null}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	cats := []string{"Laptop", " Ayakkabı ", "Laptop"}
	prefs, err := store.UpdatePreferences(context.Background(), "u1", domain.PreferencesUpdate{
		FavoriteCategories: &cats,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ayakkabı", "Laptop"}, prefs.FavoriteCategories)
	assert.Equal(t, []string{"Nike"}, prefs.PreferredBrands)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdatePreferences_ExecError(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM user_preferences").
		WithArgs("u1").
		WillReturnRows(prefRow("u1", `[]`, `[]`, `{"min":null,"max":null}`))
	mock.ExpectExec("UPDATE user_preferences").
		WillReturnError(errors.New("connection reset"))

	band := domain.PriceBand{Max: domain.FloatPtr(500)}
	_, err := store.UpdatePreferences(context.Background(), "u1", domain.PreferencesUpdate{PriceRange: &band})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update preferences")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendHistory_AssignsIDAndTime(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO search_history").
		WithArgs(pgxmock.AnyArg(), "u1", "laptop", []byte(`{"brand":"Lenovo"}`), 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry := &domain.SearchHistoryEntry{
		UserID:       "u1",
		Query:        "laptop",
		Filters:      domain.FilterSet{Brand: domain.StringPtr("Lenovo")},
		ResultsCount: 3,
	}
	require.NoError(t, store.AppendHistory(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendHistory_ExecError(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO search_history").
		WillReturnError(errors.New("connection refused"))

	err := store.AppendHistory(context.Background(), &domain.SearchHistoryEntry{UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append history")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecentHistory_NewestFirst(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	newer := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	mock.ExpectQuery("SELECT .+ FROM search_history").
		WithArgs("u1", 10).
		WillReturnRows(pgxmock.NewRows(historyColumns).
			AddRow("h2", "u1", "ayakkabı", []byte(`{"category":"Ayakkabı","min_price":"200"}`), 4, newer).
			AddRow("h1", "u1", "laptop", []byte(`{}`), 0, older))

	got, err := store.RecentHistory(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h2", got[0].ID)
	require.NotNil(t, got[0].Filters.Category)
	assert.Equal(t, "Ayakkabı", *got[0].Filters.Category)
	require.NotNil(t, got[0].Filters.MinPrice)
	assert.Equal(t, 200.0, *got[0].Filters.MinPrice)
	assert.Equal(t, "h1", got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecentHistory_TimestampTiesNewestInsertFirst(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	at := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, seq DESC")).
		WithArgs("u1", 10).
		WillReturnRows(pgxmock.NewRows(historyColumns).
			AddRow("h2", "u1", "second", []byte(`{}`), 1, at).
			AddRow("h1", "u1", "first", []byte(`{}`), 1, at))

	got, err := store.RecentHistory(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"h2", "h1"}, []string{got[0].ID, got[1].ID})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecentHistory_Empty(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM search_history").
		WithArgs("u9", 100).
		WillReturnRows(pgxmock.NewRows(historyColumns))

	got, err := store.RecentHistory(context.Background(), "u9", 500)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecentHistory_QueryError(t *testing.T) {
	store, mock := newStoreFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM search_history").
		WillReturnError(errors.New("i/o timeout"))

	_, err := store.RecentHistory(context.Background(), "u1", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list history")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Package postgres implements repository.PreferenceStore on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/repository"
	"github.com/Daption-ciray/proapp/pkg/database"
)

const (
	selectPreferencesSQL = `
		SELECT user_id, favorite_categories, preferred_brands, price_range, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1`

	insertDefaultPreferencesSQL = `
		INSERT INTO user_preferences (user_id, favorite_categories, preferred_brands, price_range, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING`

	updatePreferencesSQL = `
		UPDATE user_preferences
		SET favorite_categories = $2, preferred_brands = $3, price_range = $4, updated_at = $5
		WHERE user_id = $1`

	insertHistorySQL = `
		INSERT INTO search_history (id, user_id, query, filters, results_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	selectHistorySQL = `
		SELECT id::text, user_id, query, filters, results_count, created_at
		FROM search_history
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`
)

// Store is a PostgreSQL-backed preference store.
type Store struct {
	db     database.DBTX
	tracer *database.QueryTracer
}

var _ repository.PreferenceStore = (*Store)(nil)

// NewStore creates a store over db. tracer may be nil.
func NewStore(db database.DBTX, tracer *database.QueryTracer) *Store {
	return &Store{db: db, tracer: tracer}
}

// GetPreferences returns the stored preferences, inserting the empty default
// record when the user has none yet. Concurrent first accesses converge on
// a single row.
func (s *Store) GetPreferences(ctx context.Context, userID string) (prefs *domain.UserPreferences, err error) {
	ctx, end := s.tracer.Start(ctx, "GetPreferences", selectPreferencesSQL)
	defer func() { end(err) }()

	prefs, err = s.selectPreferences(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	def := domain.DefaultPreferences(userID)
	cats, brands, band, err := encodePreferences(def)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if _, err = s.db.Exec(ctx, insertDefaultPreferencesSQL,
		userID, cats, brands, band, def.CreatedAt, def.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("create default preferences: %w", err)
	}

	prefs, err = s.selectPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return prefs, nil
}

// UpdatePreferences applies update on top of the current record.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, update domain.PreferencesUpdate) (*domain.UserPreferences, error) {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	update.Apply(prefs)

	ctx, end := s.tracer.Start(ctx, "UpdatePreferences", updatePreferencesSQL)
	cats, brands, band, err := encodePreferences(prefs)
	if err == nil {
		_, err = s.db.Exec(ctx, updatePreferencesSQL, userID, cats, brands, band, prefs.UpdatedAt)
	}
	end(err)
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return prefs, nil
}

// AppendHistory inserts entry, assigning an ID and timestamp when missing.
func (s *Store) AppendHistory(ctx context.Context, entry *domain.SearchHistoryEntry) (err error) {
	ctx, end := s.tracer.Start(ctx, "AppendHistory", insertHistorySQL)
	defer func() { end(err) }()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	filters, err := json.Marshal(entry.Filters)
	if err != nil {
		return fmt.Errorf("encode history filters: %w", err)
	}

	if _, err = s.db.Exec(ctx, insertHistorySQL,
		entry.ID, entry.UserID, entry.Query, filters, entry.ResultsCount, entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// RecentHistory returns the newest entries for userID.
func (s *Store) RecentHistory(ctx context.Context, userID string, limit int) (out []domain.SearchHistoryEntry, err error) {
	ctx, end := s.tracer.Start(ctx, "RecentHistory", selectHistorySQL)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, selectHistorySQL, userID, repository.ClampHistoryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out = []domain.SearchHistoryEntry{}
	for rows.Next() {
		var (
			e       domain.SearchHistoryEntry
			filters []byte
		)
		if err = rows.Scan(&e.ID, &e.UserID, &e.Query, &filters, &e.ResultsCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if len(filters) > 0 {
			if err = json.Unmarshal(filters, &e.Filters); err != nil {
				return nil, fmt.Errorf("decode history filters: %w", err)
			}
		}
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

func (s *Store) selectPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	var (
		p                  domain.UserPreferences
		cats, brands, band []byte
	)
	if err := s.db.QueryRow(ctx, selectPreferencesSQL, userID).Scan(
		&p.UserID, &cats, &brands, &band, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := decodeJSON(cats, &p.FavoriteCategories); err != nil {
		return nil, fmt.Errorf("decode favorite_categories: %w", err)
	}
	if err := decodeJSON(brands, &p.PreferredBrands); err != nil {
		return nil, fmt.Errorf("decode preferred_brands: %w", err)
	}
	if err := decodeJSON(band, &p.PriceRange); err != nil {
		return nil, fmt.Errorf("decode price_range: %w", err)
	}
	if p.FavoriteCategories == nil {
		p.FavoriteCategories = []string{}
	}
	if p.PreferredBrands == nil {
		p.PreferredBrands = []string{}
	}
	return &p, nil
}

func encodePreferences(p *domain.UserPreferences) (cats, brands, band []byte, err error) {
	if cats, err = json.Marshal(p.FavoriteCategories); err != nil {
		return nil, nil, nil, err
	}
	if brands, err = json.Marshal(p.PreferredBrands); err != nil {
		return nil, nil, nil, err
	}
	if band, err = json.Marshal(p.PriceRange); err != nil {
		return nil, nil, nil, err
	}
	return cats, brands, band, nil
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

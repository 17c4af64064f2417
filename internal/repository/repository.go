// Package repository defines persistence for user preferences and search
// history.
package repository

import (
	"context"

	"github.com/Daption-ciray/proapp/internal/domain"
)

// DefaultHistoryLimit is used when a caller asks for a non-positive number of
// history rows.
const DefaultHistoryLimit = 10

// MaxHistoryLimit caps RecentHistory.
const MaxHistoryLimit = 100

// PreferenceStore persists explicit user preferences and the append-only
// search history.
type PreferenceStore interface {
	// GetPreferences returns the user's preferences, creating and storing an
	// empty record on first access.
	GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error)

	// UpdatePreferences applies a partial update and returns the stored result.
	UpdatePreferences(ctx context.Context, userID string, update domain.PreferencesUpdate) (*domain.UserPreferences, error)

	// AppendHistory records a performed search.
	AppendHistory(ctx context.Context, entry *domain.SearchHistoryEntry) error

	// RecentHistory returns up to limit entries for the user, newest first.
	RecentHistory(ctx context.Context, userID string, limit int) ([]domain.SearchHistoryEntry, error)
}

// ClampHistoryLimit applies DefaultHistoryLimit and MaxHistoryLimit.
func ClampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

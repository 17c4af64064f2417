// Package personalization blends stored user preferences into a search's
// filter set without overriding what the user asked for explicitly.
package personalization

import (
	"context"
	"log/slog"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/metrics"
)

// Merge returns a copy of filters enriched with prefs. preferred_brands is
// attached only when no explicit brand is set and preferred_categories only
// when no explicit category is set; an explicit filter clears the matching
// advisory set. filters is never modified and Merge is idempotent.
func Merge(filters domain.FilterSet, prefs *domain.UserPreferences) domain.FilterSet {
	out := filters.Clone()
	if prefs == nil {
		return out
	}

	if out.Brand != nil {
		out.PreferredBrands = nil
	} else if brands := domain.NormalizeSet(prefs.PreferredBrands); len(brands) > 0 {
		out.PreferredBrands = brands
	}

	if out.Category != nil {
		out.PreferredCategories = nil
	} else if cats := domain.NormalizeSet(prefs.FavoriteCategories); len(cats) > 0 {
		out.PreferredCategories = cats
	}

	return out
}

// PreferenceSource provides stored preferences for a user.
type PreferenceSource interface {
	GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error)
}

// Merger fetches preferences and merges them into filter sets.
type Merger struct {
	source PreferenceSource
	logger *slog.Logger
}

// NewMerger creates a Merger reading from source.
func NewMerger(source PreferenceSource, logger *slog.Logger) *Merger {
	return &Merger{source: source, logger: logger}
}

// Apply personalizes filters for userID. Without a user id, or when the
// preferences cannot be fetched, a copy of filters is returned unchanged.
func (m *Merger) Apply(ctx context.Context, filters domain.FilterSet, userID string) domain.FilterSet {
	if userID == "" || m.source == nil {
		return filters.Clone()
	}

	prefs, err := m.source.GetPreferences(ctx, userID)
	if err != nil {
		metrics.PreferenceFetchFailures.Inc()
		m.logger.WarnContext(ctx, "preference fetch failed, searching without personalization",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return filters.Clone()
	}

	return Merge(filters, prefs)
}

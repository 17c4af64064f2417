package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Daption-ciray/proapp/internal/analyzer"
	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/repository"
	apperrors "github.com/Daption-ciray/proapp/pkg/errors"
)

// PreferenceService manages explicit preferences and derived analysis.
type PreferenceService struct {
	store  repository.PreferenceStore
	logger *slog.Logger
}

// NewPreferenceService creates a service over store.
func NewPreferenceService(store repository.PreferenceStore, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{store: store, logger: logger}
}

// Get returns the user's preferences, creating the default record on first
// access.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return nil, s.unavailable(ctx, "get preferences", userID, err)
	}
	return prefs, nil
}

// Update applies a partial update.
func (s *PreferenceService) Update(ctx context.Context, userID string, update domain.PreferencesUpdate) (*domain.UserPreferences, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if band := update.PriceRange; band != nil {
		if (band.Min != nil && *band.Min < 0) || (band.Max != nil && *band.Max < 0) {
			return nil, apperrors.InvalidInput("price_range bounds must not be negative")
		}
	}
	prefs, err := s.store.UpdatePreferences(ctx, userID, update)
	if err != nil {
		return nil, s.unavailable(ctx, "update preferences", userID, err)
	}
	s.logger.InfoContext(ctx, "preferences updated", slog.String("user_id", userID))
	return prefs, nil
}

// History returns up to limit recent searches, newest first.
func (s *PreferenceService) History(ctx context.Context, userID string, limit int) ([]domain.SearchHistoryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	entries, err := s.store.RecentHistory(ctx, userID, repository.ClampHistoryLimit(limit))
	if err != nil {
		return nil, s.unavailable(ctx, "list history", userID, err)
	}
	return entries, nil
}

// Analyze summarizes the user's most recent searches.
func (s *PreferenceService) Analyze(ctx context.Context, userID string) (domain.PreferenceAnalysis, error) {
	if err := requireUser(userID); err != nil {
		return domain.PreferenceAnalysis{}, err
	}
	entries, err := s.store.RecentHistory(ctx, userID, analyzer.Window)
	if err != nil {
		return domain.PreferenceAnalysis{}, s.unavailable(ctx, "analyze preferences", userID, err)
	}
	return analyzer.Analyze(entries), nil
}

func (s *PreferenceService) unavailable(ctx context.Context, op, userID string, err error) error {
	s.logger.ErrorContext(ctx, op+" failed",
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
	return apperrors.ServiceUnavailable("preference store unavailable", err)
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.InvalidInput("user id is required")
	}
	return nil
}

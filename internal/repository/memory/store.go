// Package memory implements repository.PreferenceStore in process memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/repository"
)

// Store keeps preferences and history in maps. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	prefs   map[string]domain.UserPreferences
	history map[string][]domain.SearchHistoryEntry
	seen    map[string]struct{}
}

var _ repository.PreferenceStore = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		prefs:   make(map[string]domain.UserPreferences),
		history: make(map[string][]domain.SearchHistoryEntry),
		seen:    make(map[string]struct{}),
	}
}

func (s *Store) GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.loadOrCreate(userID)
	return &p, nil
}

func (s *Store) UpdatePreferences(ctx context.Context, userID string, update domain.PreferencesUpdate) (*domain.UserPreferences, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.loadOrCreate(userID)
	update.Apply(&p)
	s.prefs[userID] = copyPreferences(p)
	return &p, nil
}

// AppendHistory stores entry. An entry whose ID is already stored is
// ignored, so redelivered events are not counted twice.
func (s *Store) AppendHistory(ctx context.Context, entry *domain.SearchHistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	e := *entry
	e.Filters = entry.Filters.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[e.ID]; dup {
		return nil
	}
	s.seen[e.ID] = struct{}{}
	s.history[e.UserID] = append(s.history[e.UserID], e)
	return nil
}

func (s *Store) RecentHistory(ctx context.Context, userID string, limit int) ([]domain.SearchHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := append([]domain.SearchHistoryEntry(nil), s.history[userID]...)
	s.mu.RUnlock()

	// Appends arrive in insertion order; the stable sort keeps that order
	// for entries sharing a timestamp, and the reversal puts newest first.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	out := make([]domain.SearchHistoryEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	if n := repository.ClampHistoryLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// loadOrCreate must be called with mu held for writing.
func (s *Store) loadOrCreate(userID string) domain.UserPreferences {
	p, ok := s.prefs[userID]
	if !ok {
		p = *domain.DefaultPreferences(userID)
		s.prefs[userID] = p
	}
	return copyPreferences(p)
}

func copyPreferences(p domain.UserPreferences) domain.UserPreferences {
	p.FavoriteCategories = append([]string{}, p.FavoriteCategories...)
	p.PreferredBrands = append([]string{}, p.PreferredBrands...)
	return p
}

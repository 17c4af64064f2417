package domain

import (
	"time"
)

// PriceBand is an optional price interval.
type PriceBand struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// UserPreferences are the stored, explicitly managed preferences of a user.
type UserPreferences struct {
	UserID             string    `json:"user_id"`
	FavoriteCategories []string  `json:"favorite_categories"`
	PreferredBrands    []string  `json:"preferred_brands"`
	PriceRange         PriceBand `json:"price_range"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultPreferences returns the empty record created on first access.
func DefaultPreferences(userID string) *UserPreferences {
	now := time.Now().UTC()
	return &UserPreferences{
		UserID:             userID,
		FavoriteCategories: []string{},
		PreferredBrands:    []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// PreferencesUpdate is a partial update; nil fields are left untouched.
type PreferencesUpdate struct {
	FavoriteCategories *[]string  `json:"favorite_categories,omitempty"`
	PreferredBrands    *[]string  `json:"preferred_brands,omitempty"`
	PriceRange         *PriceBand `json:"price_range,omitempty"`
}

// Apply mutates p with the fields present in u.
func (u PreferencesUpdate) Apply(p *UserPreferences) {
	if u.FavoriteCategories != nil {
		p.FavoriteCategories = nonNil(NormalizeSet(*u.FavoriteCategories))
	}
	if u.PreferredBrands != nil {
		p.PreferredBrands = nonNil(NormalizeSet(*u.PreferredBrands))
	}
	if u.PriceRange != nil {
		p.PriceRange = *u.PriceRange
	}
	p.UpdatedAt = time.Now().UTC()
}

// SearchHistoryEntry is an append-only record of a performed search.
type SearchHistoryEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Query        string    `json:"query"`
	Filters      FilterSet `json:"filters"`
	ResultsCount int       `json:"results_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// CategoryCount is a category and the number of searches that used it.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// BrandCount is a brand and the number of searches that used it.
type BrandCount struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

// PreferenceAnalysis is derived from recent search history on demand.
type PreferenceAnalysis struct {
	TopCategories     []CategoryCount `json:"top_categories"`
	TopBrands         []BrandCount    `json:"top_brands"`
	AveragePriceRange PriceBand       `json:"average_price_range"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

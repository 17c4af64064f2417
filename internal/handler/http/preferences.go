package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/repository"
	"github.com/Daption-ciray/proapp/internal/service"
	"github.com/Daption-ciray/proapp/pkg/httputil"
)

// PreferenceHandler serves the per-user preference endpoints.
type PreferenceHandler struct {
	service *service.PreferenceService
	logger  *slog.Logger
}

// NewPreferenceHandler creates a new preference HTTP handler.
func NewPreferenceHandler(svc *service.PreferenceService, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{service: svc, logger: logger}
}

// UpdatePreferencesRequest is the JSON body of a partial update. Omitted
// fields keep their stored value.
type UpdatePreferencesRequest struct {
	FavoriteCategories *[]string         `json:"favorite_categories,omitempty" validate:"omitempty,max=50"`
	PreferredBrands    *[]string         `json:"preferred_brands,omitempty" validate:"omitempty,max=50"`
	PriceRange         *domain.PriceBand `json:"price_range,omitempty"`
}

// Get handles GET /api/v1/users/{userID}/preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, prefs)
}

// Update handles PUT /api/v1/users/{userID}/preferences
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body UpdatePreferencesRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	prefs, err := h.service.Update(r.Context(), chi.URLParam(r, "userID"), domain.PreferencesUpdate{
		FavoriteCategories: body.FavoriteCategories,
		PreferredBrands:    body.PreferredBrands,
		PriceRange:         body.PriceRange,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, prefs)
}

// History handles GET /api/v1/users/{userID}/history?limit=
func (h *PreferenceHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", repository.DefaultHistoryLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	entries, err := h.service.History(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if entries == nil {
		entries = []domain.SearchHistoryEntry{}
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"history": entries})
}

// Analyze handles GET /api/v1/users/{userID}/preferences/analysis
func (h *PreferenceHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Analyze(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, analysis)
}

package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/extractor"
	"github.com/Daption-ciray/proapp/internal/service"
	"github.com/Daption-ciray/proapp/pkg/httputil"
	"github.com/Daption-ciray/proapp/pkg/middleware"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service   *service.SearchService
	extractor extractor.Extractor
	logger    *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, ext extractor.Extractor, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{service: svc, extractor: ext, logger: logger}
}

// --- Request and response DTOs ---

// SearchRequest is the JSON body of POST /api/v1/search. Out of range
// limits are clamped by the service, not rejected.
type SearchRequest struct {
	Query   string           `json:"query" validate:"max=500"`
	Filters domain.FilterSet `json:"filters"`
	Limit   int              `json:"limit,omitempty"`
}

// ChatSearchRequest is the JSON body of POST /api/v1/chat/search.
type ChatSearchRequest struct {
	Message string `json:"message" validate:"required,notblank,max=1000"`
	Limit   int    `json:"limit,omitempty"`
}

// ImportRequest is the JSON body of POST /api/v1/products/bulk.
type ImportRequest struct {
	Products []domain.Product `json:"products" validate:"required,min=1,max=1000"`
}

// SearchResponse is the data of a search response.
type SearchResponse struct {
	Products   []domain.Hit      `json:"products"`
	Total      int               `json:"total"`
	Relaxation domain.Relaxation `json:"relaxation"`
	// Relaxed is set when products come from a loosened request.
	Relaxed bool `json:"relaxed"`
	// NoResults is set when nothing was found even after relaxation.
	NoResults bool `json:"no_results"`
	Cached    bool `json:"cached"`
}

// ChatSearchResponse adds the interpreted request to a search response.
type ChatSearchResponse struct {
	SearchResponse
	Interpreted domain.SearchRequest `json:"interpreted"`
}

func newSearchResponse(res domain.RankedResults) SearchResponse {
	return SearchResponse{
		Products:   res.Hits,
		Total:      res.Total,
		Relaxation: res.Relaxation,
		Relaxed:    res.Relaxation.Relaxed(),
		NoResults:  res.Empty(),
		Cached:     res.Cached,
	}
}

// --- Handlers ---

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res := h.service.Search(r.Context(), domain.SearchRequest{
		Query:   strings.TrimSpace(body.Query),
		Filters: body.Filters,
		Limit:   body.Limit,
	}, userID(r))
	httputil.WriteData(w, http.StatusOK, newSearchResponse(res))
}

// SearchQuery handles GET /api/v1/search?q=&category=&brand=&...
// Filter parameters are parsed leniently: malformed values are ignored.
func (h *SearchHandler) SearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := make(map[string]any)
	for _, key := range []string{
		domain.FilterCategory,
		domain.FilterBrand,
		domain.FilterTargetAudience,
		domain.FilterColor,
		domain.FilterMinPrice,
		domain.FilterMaxPrice,
	} {
		if v := q.Get(key); v != "" {
			raw[key] = v
		}
	}

	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res := h.service.Search(r.Context(), domain.SearchRequest{
		Query:   strings.TrimSpace(q.Get("q")),
		Filters: domain.ParseFilterSet(raw),
		Limit:   limit,
	}, userID(r))
	httputil.WriteData(w, http.StatusOK, newSearchResponse(res))
}

// ChatSearch handles POST /api/v1/chat/search
func (h *SearchHandler) ChatSearch(w http.ResponseWriter, r *http.Request) {
	var body ChatSearchRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	req, err := h.extractor.Extract(r.Context(), body.Message)
	if err != nil {
		req = extractor.Fallback(body.Message)
	}
	req.Limit = body.Limit

	res := h.service.Search(r.Context(), req, userID(r))
	httputil.WriteData(w, http.StatusOK, ChatSearchResponse{
		SearchResponse: newSearchResponse(res),
		Interpreted:    req,
	})
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	suggestions := h.service.Suggest(r.Context(), r.URL.Query().Get("q"))
	httputil.WriteData(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// Import handles POST /api/v1/products/bulk
func (h *SearchHandler) Import(w http.ResponseWriter, r *http.Request) {
	var body ImportRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := h.service.ImportProducts(r.Context(), body.Products); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"indexed": len(body.Products)})
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(middleware.HeaderUserID))
}

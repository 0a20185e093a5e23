package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"screenscout/models"
	catalogpkg "screenscout/services/catalog"
)

// Cache-Control values per endpoint. Responses are shared-cacheable: search
// results churn quickly, title details are stable for a day, AI overviews for
// a week.
const (
	searchCacheControl   = "public, s-maxage=600, stale-while-revalidate=900"
	titleCacheControl    = "public, s-maxage=86400, stale-while-revalidate=43200"
	overviewCacheControl = "public, s-maxage=604800, stale-while-revalidate=86400"
)

type catalogService interface {
	Search(context.Context, string) ([]models.SearchResult, error)
	TitleDetails(context.Context, models.TitleRef) (*models.TitleDetails, error)
	AIOverview(context.Context, models.TitleRef) (*models.AIOverview, error)
}

var _ catalogService = (*catalogpkg.Service)(nil)

// TitlesHandler serves the search, title-detail, and AI-overview endpoints.
type TitlesHandler struct {
	Service catalogService
}

func NewTitlesHandler(s catalogService) *TitlesHandler {
	return &TitlesHandler{Service: s}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Search handles GET /api/search?q=. Queries shorter than two characters are
// rejected before any upstream call is made.
func (h *TitlesHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		writeError(w, http.StatusBadRequest, "Query must be at least 2 characters")
		return
	}

	results, err := h.Service.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, catalogpkg.ErrMissingTMDBKey) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Printf("[titles] search failed q=%q: %v", query, err)
		writeError(w, http.StatusBadGateway, "Failed to search titles")
		return
	}

	w.Header().Set("Cache-Control", searchCacheControl)
	writeJSON(w, http.StatusOK, results)
}

// parseTitleRef validates the type/id pair shared by the title and AI-overview
// endpoints.
func parseTitleRef(rawType, rawID string) (models.TitleRef, string) {
	mediaType, ok := models.ParseMediaType(strings.TrimSpace(rawType))
	if !ok {
		return models.TitleRef{}, "Invalid type. Must be 'movie' or 'tv'"
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return models.TitleRef{}, "Invalid ID"
	}
	return models.TitleRef{Type: mediaType, ID: id}, ""
}

// TitleDetails handles GET /api/title?type=&id=.
func (h *TitlesHandler) TitleDetails(w http.ResponseWriter, r *http.Request) {
	ref, problem := parseTitleRef(r.URL.Query().Get("type"), r.URL.Query().Get("id"))
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	details, err := h.Service.TitleDetails(r.Context(), ref)
	if err != nil {
		if errors.Is(err, catalogpkg.ErrMissingTMDBKey) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Printf("[titles] title details failed %s/%d: %v", ref.Type, ref.ID, err)
		writeError(w, http.StatusBadGateway, "Failed to fetch title details")
		return
	}

	w.Header().Set("Cache-Control", titleCacheControl)
	writeJSON(w, http.StatusOK, details)
}

type aiOverviewRequest struct {
	Type string          `json:"type"`
	ID   json.RawMessage `json:"id"`
}

// AIOverview handles POST /api/ai-overview with body {type, id}. The id is
// accepted as either a JSON number or a numeric string.
func (h *TitlesHandler) AIOverview(w http.ResponseWriter, r *http.Request) {
	var req aiOverviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ref, problem := parseTitleRef(req.Type, strings.Trim(string(req.ID), `"`))
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	overview, err := h.Service.AIOverview(r.Context(), ref)
	if err != nil {
		if errors.Is(err, catalogpkg.ErrMissingTMDBKey) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Printf("[titles] ai overview failed %s/%d: %v", ref.Type, ref.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate AI overview")
		return
	}

	w.Header().Set("Cache-Control", overviewCacheControl)
	writeJSON(w, http.StatusOK, overview)
}

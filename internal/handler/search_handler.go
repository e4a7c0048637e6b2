package handler

import (
	"net/http"
	"strings"

	"ebook-reader/internal/domain"
)

// SearchHandler handles search HTTP requests
type SearchHandler struct {
	search domain.SearchService
	logger domain.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search domain.SearchService, logger domain.Logger) *SearchHandler {
	return &SearchHandler{
		search: search,
		logger: logger,
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Query   string               `json:"query"`
	Matches []domain.SearchMatch `json:"matches"`
}

type cursorResponse struct {
	Match *domain.SearchMatch `json:"match"`
	Index int                 `json:"index"`
}

// Scan handles a batch scan of the whole book
func (h *SearchHandler) Scan(w http.ResponseWriter, r *http.Request) {
	query, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	matches, err := h.search.Scan(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if matches == nil {
		matches = make([]domain.SearchMatch, 0)
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Matches: matches})
}

// Interactive opens an interactive search with match overlays
func (h *SearchHandler) Interactive(w http.ResponseWriter, r *http.Request) {
	query, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	matches, err := h.search.Interactive(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if matches == nil {
		matches = make([]domain.SearchMatch, 0)
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Matches: matches})
}

// Next moves the search cursor forward, wrapping at the end
func (h *SearchHandler) Next(w http.ResponseWriter, r *http.Request) {
	match, index, err := h.search.Next(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cursorResponse{Match: match, Index: index})
}

// Prev moves the search cursor backward, wrapping at the start
func (h *SearchHandler) Prev(w http.ResponseWriter, r *http.Request) {
	match, index, err := h.search.Prev(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cursorResponse{Match: match, Index: index})
}

// Close ends the interactive search and clears its overlays
func (h *SearchHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.search.CloseInteractive(); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Search closed"})
}

func (h *SearchHandler) decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return "", false
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return "", false
	}
	return query, true
}

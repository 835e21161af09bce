package match

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/courtside/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for suggestions and matches.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for match endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "match_http").Logger(),
	}
}

// Suggest handles POST /v1/courts/{courtID}/suggestions
func (h *HTTPHandlers) Suggest(w http.ResponseWriter, r *http.Request) {
	courtID, err := uuid.Parse(r.PathValue("courtID"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidCourtID, "Invalid court id")
		return
	}

	sug, err := h.service.SuggestForCourt(r.Context(), courtID)
	if err != nil {
		h.respondServiceError(w, err, httperrors.ErrCodeSuggestFailed)
		return
	}
	if sug == nil {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "queue_not_ready"})
		return
	}
	h.respondJSON(w, http.StatusCreated, sug)
}

// Accept handles POST /v1/suggestions/{id}/accept
func (h *HTTPHandlers) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	m, err := h.service.Accept(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, httperrors.ErrCodeAcceptFailed)
		return
	}
	h.respondJSON(w, http.StatusCreated, m)
}

// Reject handles POST /v1/suggestions/{id}/reject
func (h *HTTPHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Reject(r.Context(), id); err != nil {
		h.respondServiceError(w, err, httperrors.ErrCodeInternalError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Finish handles POST /v1/matches/{id}/finish
func (h *HTTPHandlers) Finish(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Finish(r.Context(), id); err != nil {
		h.respondServiceError(w, err, httperrors.ErrCodeInternalError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidID, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCourtNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeCourtNotFound, "Court not found")
	case errors.Is(err, ErrSuggestionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSuggestionNotFound, "Suggestion not found or expired")
	case errors.Is(err, ErrMatchNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeMatchNotFound, "Match not found or already finished")
	case errors.Is(err, ErrCourtUnavailable):
		httperrors.RespondConflict(w, httperrors.ErrCodeCourtUnavailable, "Court is not available")
	case errors.Is(err, ErrLocationBusy):
		httperrors.RespondConflict(w, httperrors.ErrCodeLocationBusy, "Location is being allocated, retry shortly")
	case errors.Is(err, ErrSuggestionStale):
		httperrors.RespondErrorWithDetails(w, http.StatusConflict, httperrors.ErrCodeSuggestionStale, "Suggestion no longer applies",
			map[string]interface{}{"cause": err.Error()})
	default:
		h.logger.Error().Err(err).Msg("match request failed")
		httperrors.RespondError(w, http.StatusInternalServerError, fallback, "Internal error")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

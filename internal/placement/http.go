package placement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/courtside/pkg/http/errors"
)

// HTTPHandler serves check-ins.
type HTTPHandler struct {
	service *Service
	logger  zerolog.Logger
}

func NewHTTPHandler(service *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  logger.With().Str("component", "placement_http").Logger(),
	}
}

// CheckIn handles POST /v1/checkins
func (h *HTTPHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if len(req.ParticipantIDs) == 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "participant_ids is required", "participant_ids")
		return
	}

	res, err := h.service.CheckIn(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidArrival):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidArrival, err.Error(), "participant_ids")
		return
	case errors.Is(err, ErrUnknownParticipant):
		httperrors.RespondNotFound(w, httperrors.ErrCodeParticipantUnknown, "Participant not found")
		return
	case errors.Is(err, ErrAlreadyQueued):
		httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyQueued, "Participant is already queued")
		return
	case errors.Is(err, ErrNoActiveLocations):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeNoActiveLocations, "No active locations")
		return
	default:
		h.logger.Error().Err(err).Msg("check-in failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeCheckInFailed, "Check-in failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

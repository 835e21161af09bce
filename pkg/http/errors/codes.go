package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeConflict      = "conflict"

	// Court/suggestion errors
	ErrCodeCourtNotFound      = "court_not_found"
	ErrCodeCourtUnavailable   = "court_unavailable"
	ErrCodeLocationBusy       = "location_busy"
	ErrCodeSuggestionNotFound = "suggestion_not_found"
	ErrCodeSuggestionStale    = "suggestion_stale"
	ErrCodeSuggestFailed      = "suggest_failed"
	ErrCodeAcceptFailed       = "accept_failed"
	ErrCodeMatchNotFound      = "match_not_found"
	ErrCodeInvalidCourtID     = "invalid_court_id"
	ErrCodeInvalidID          = "invalid_id"

	// Check-in errors
	ErrCodeNoActiveLocations  = "no_active_locations"
	ErrCodeInvalidArrival     = "invalid_arrival"
	ErrCodeParticipantUnknown = "participant_not_found"
	ErrCodeAlreadyQueued      = "already_queued"
	ErrCodeCheckInFailed      = "check_in_failed"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)

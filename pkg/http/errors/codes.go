package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeMissingParameters = "missing_parameters"
	ErrCodeUnknownMode       = "unknown_mode"
	ErrCodeInvalidGrade      = "invalid_grade"

	// Game token errors
	ErrCodeGameTokenExpired   = "game_token_expired"
	ErrCodeGameTokenInvalid   = "game_token_invalid"
	ErrCodeGamePayloadCorrupt = "game_payload_corrupt"

	// Resource errors
	ErrCodeNotFound     = "not_found"
	ErrCodeUserNotFound = "user_not_found"

	// Business logic errors
	ErrCodeInsufficientVocabulary = "insufficient_vocabulary"
	ErrCodeGameStartFailed        = "game_start_failed"
	ErrCodePersistenceFailure     = "persistence_failure"
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
	ErrCodeProgressionFetchFailed = "progression_fetch_failed"
	ErrCodeAlertUpdateFailed      = "alert_update_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)

package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeTokenExpired = "token_expired"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound = "not_found"
	ErrCodeConflict = "conflict"

	// Game errors
	ErrCodeDeckFetchFailed     = "deck_fetch_failed"
	ErrCodeDeckSaveFailed      = "deck_save_failed"
	ErrCodeSessionFetchFailed  = "session_fetch_failed"
	ErrCodeSaveFailed          = "save_failed"
	ErrCodeQuestionNotFound    = "question_not_found"
	ErrCodeQuestionAddFailed   = "question_add_failed"
	ErrCodeQuestionEditFailed  = "question_edit_failed"
	ErrCodeQuestionDeleteFailed = "question_delete_failed"
	ErrCodePostCreationFailed  = "post_creation_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
)

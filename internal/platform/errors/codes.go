// Package errors provides structured domain errors with HTTP status mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"

	// Auth errors
	CodeAuthRequired           Code = "AUTH_REQUIRED"
	CodeAuthInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeAuthTokenInvalid       Code = "AUTH_TOKEN_INVALID"
	CodeForbidden              Code = "FORBIDDEN"

	// User errors
	CodeUserEmailTaken    Code = "USER_EMAIL_TAKEN"
	CodeUserInvalidEmail  Code = "USER_INVALID_EMAIL"
	CodeUserInvalidName   Code = "USER_INVALID_NAME"
	CodeUserWeakPassword  Code = "USER_WEAK_PASSWORD"
	CodeUserBanned        Code = "USER_BANNED"
	CodeUserSelfBan       Code = "USER_SELF_BAN"
	CodeProfileInvalid    Code = "PROFILE_INVALID"
	CodeProfileSkillLimit Code = "PROFILE_SKILL_LIMIT"

	// Swap errors
	CodeSwapSelf              Code = "SWAP_SELF"
	CodeSwapSkillNotOffered   Code = "SWAP_SKILL_NOT_OFFERED"
	CodeSwapDuplicate         Code = "SWAP_DUPLICATE"
	CodeSwapInvalidTransition Code = "SWAP_INVALID_TRANSITION"
	CodeSwapNotActive         Code = "SWAP_NOT_ACTIVE"

	// Session errors
	CodeSessionInvalidSchedule Code = "SESSION_INVALID_SCHEDULE"
	CodeSessionOverlap         Code = "SESSION_OVERLAP"
	CodeSessionInvalidStatus   Code = "SESSION_INVALID_STATUS"

	// Message errors
	CodeMessageInvalid  Code = "MESSAGE_INVALID"
	CodeMessageRejected Code = "MESSAGE_REJECTED"

	// Feedback errors
	CodeFeedbackInvalid   Code = "FEEDBACK_INVALID"
	CodeFeedbackDuplicate Code = "FEEDBACK_DUPLICATE"

	// AI errors
	CodeAIUnavailable Code = "AI_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// BadRequest - validation failures, bad input
	case CodeInvalidArgument,
		CodeUserInvalidEmail,
		CodeUserInvalidName,
		CodeUserWeakPassword,
		CodeUserSelfBan,
		CodeProfileInvalid,
		CodeProfileSkillLimit,
		CodeSwapSelf,
		CodeSwapSkillNotOffered,
		CodeSessionInvalidSchedule,
		CodeMessageInvalid,
		CodeFeedbackInvalid:
		return http.StatusBadRequest

	case CodeAuthRequired,
		CodeAuthInvalidCredentials,
		CodeAuthTokenInvalid:
		return http.StatusUnauthorized

	case CodeForbidden,
		CodeUserBanned:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	// Conflict - uniqueness or state does not allow operation
	case CodeUserEmailTaken,
		CodeSwapDuplicate,
		CodeSwapInvalidTransition,
		CodeSwapNotActive,
		CodeSessionOverlap,
		CodeSessionInvalidStatus,
		CodeFeedbackDuplicate:
		return http.StatusConflict

	case CodeMessageRejected:
		return http.StatusUnprocessableEntity

	case CodeAIUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

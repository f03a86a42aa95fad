package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/quota"
	"github.com/phrazzld/atelier-api/internal/service/artifact"
	"github.com/phrazzld/atelier-api/internal/service/auth"
	"github.com/phrazzld/atelier-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, artifact.ErrArtifactNotOwned),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Quota rejections
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, artifact.ErrArtifactNotOwned),
		errors.Is(err, domain.ErrUnauthorized):
		return "You do not own this artifact"

	case errors.Is(err, store.ErrArtifactNotFound):
		return "Artifact not found"

	case errors.Is(err, store.ErrQuotaNotFound):
		return "Quota not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Already exists"

	case errors.Is(err, quota.ErrDailyLimitExceeded):
		return "Daily image limit reached"

	case errors.Is(err, quota.ErrOnDemandNotAllowed):
		return "Your plan does not allow on-demand generation"

	case errors.Is(err, quota.ErrQuotaExceeded):
		return "Not enough credits remaining"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return "Invalid request: " + vErr.Error()
		}
		return "Invalid request"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a user-friendly
// message naming only the offending field and rule, never the submitted
// value.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example input: "Key: 'LoginRequest.Email' Error:Field validation
		// for 'Email' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				if len(fieldParts) >= 5 {
					return "Validation failed on field '" + field + "' (" + fieldParts[3] + ")"
				}
				return "Validation failed on field '" + field + "'"
			}
		}
	}

	return "Validation error"
}

// HandleAPIError maps the error to a status code and safe message, then
// writes the response while logging the underlying error. An explicit
// userMessage overrides the derived safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	message := userMessage
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

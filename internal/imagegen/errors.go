package imagegen

import "errors"

// Common errors returned by image generation.
var (
	// ErrGenerationFailed is returned when image generation fails for any general reason.
	ErrGenerationFailed = errors.New("failed to generate image")

	// ErrInvalidResponse is returned when the provider response cannot be parsed,
	// is missing the expected image payload, or the payload cannot be decoded.
	// This is a permanent failure; retrying the same request will not help.
	ErrInvalidResponse = errors.New("invalid response from image service")

	// ErrContentBlocked is returned when the provider rejects the prompt,
	// for example because of safety filters. Permanent; never retried.
	ErrContentBlocked = errors.New("prompt rejected by image service")

	// ErrTransientFailure is returned for temporary errors (timeouts, server
	// errors, rate limiting) that might resolve on retry.
	ErrTransientFailure = errors.New("transient error during image generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyPrompt is returned when a generation request carries no prompt text.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)

// IsTransient reports whether the error is a transient generation failure
// that may be retried. Everything else in the taxonomy is permanent.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}

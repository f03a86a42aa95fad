// Package batch fans a set of image-generation requests out over a bounded
// number of concurrent workers, under an up-front credit reservation, and
// aggregates the outcomes into a single deterministic result.
package batch

import (
	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// RequestState tracks one request through the batch.
//
// The lifecycle is pending -> reserved -> in_flight -> succeeded | failed.
// Retry of transient failures happens inside the generation worker, so from
// the batch's point of view a request leaves in_flight only into a terminal
// state.
type RequestState string

// Request states.
const (
	StatePending   RequestState = "pending"
	StateReserved  RequestState = "reserved"
	StateInFlight  RequestState = "in_flight"
	StateSucceeded RequestState = "succeeded"
	StateFailed    RequestState = "failed"
)

// Terminal reports whether the state is one of the two terminal states.
func (s RequestState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Result is the aggregated outcome of one batch. The caller always receives
// a Result, possibly all-failed; only an up-front quota rejection prevents
// the batch from producing one.
type Result struct {
	ArtifactID uuid.UUID

	// MainImage is set only if the batch included a main request and it
	// succeeded.
	MainImage *domain.GeneratedImage

	// StageImages are ordered by original step order, independent of the
	// order generation calls completed in.
	StageImages []domain.StageImage

	TotalCreditsUsed int
	SuccessCount     int
	FailureCount     int

	// Errors describes each failed request. Its length equals FailureCount.
	Errors []string

	// Attempts records, per request in input order, how many generation
	// attempts were made before the request succeeded. Zero for requests
	// that never produced a result.
	Attempts []int
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/imagegen"
	"github.com/phrazzld/atelier-api/internal/quota"
)

// Constructor validation errors.
var (
	ErrNilGenerator = errors.New("generator cannot be nil")
	ErrNilLedger    = errors.New("ledger cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// CreditLedger is the slice of the quota ledger the orchestrator needs.
type CreditLedger interface {
	Reserve(ctx context.Context, userID uuid.UUID, credits, imageCount int) (*quota.Reservation, error)
	Commit(ctx context.Context, reservationID uuid.UUID, actualUsed, imagesProduced int) error
	Release(ctx context.Context, reservationID uuid.UUID) error
}

// Options tunes one batch run. Zero values fall back to the orchestrator's
// configured defaults.
type Options struct {
	ConcurrencyLimit int
	Deadline         time.Duration
}

// Orchestrator coordinates one batch: reservation, bounded fan-out,
// index-addressed collection, and settlement.
type Orchestrator struct {
	generator imagegen.Generator
	ledger    CreditLedger
	logger    *slog.Logger
	defaults  Options
}

// NewOrchestrator creates an Orchestrator with the given collaborators and
// default options.
func NewOrchestrator(
	generator imagegen.Generator,
	ledger CreditLedger,
	defaults Options,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if ledger == nil {
		return nil, ErrNilLedger
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	if defaults.ConcurrencyLimit <= 0 {
		defaults.ConcurrencyLimit = 4
	}
	if defaults.Deadline <= 0 {
		defaults.Deadline = 2 * time.Minute
	}

	return &Orchestrator{
		generator: generator,
		ledger:    ledger,
		logger:    logger.With("component", "batch_orchestrator"),
		defaults:  defaults,
	}, nil
}

// slot is the pre-sized, index-addressed landing place for one request's
// outcome. Each worker writes only its own slot, so no lock guards them;
// final ordering is the request ordering, never completion ordering.
type slot struct {
	state    RequestState
	result   *imagegen.Result
	err      error
	attempts int
}

// GenerateBatch resolves all requests and returns their aggregated result.
//
// Credits for the worst case are reserved before any external call; a failed
// reservation returns quota.ErrQuotaExceeded with zero calls made. After
// that, every request reaches a terminal outcome: individual failures never
// abort siblings, and the deadline cancels outstanding work cooperatively,
// marking unresolved slots as timed out. The unused portion of the
// reservation is refunded at commit.
func (o *Orchestrator) GenerateBatch(
	ctx context.Context,
	artifactID uuid.UUID,
	userID uuid.UUID,
	requests []imagegen.Request,
	opts Options,
) (*Result, error) {
	if opts.ConcurrencyLimit <= 0 {
		opts.ConcurrencyLimit = o.defaults.ConcurrencyLimit
	}
	if opts.Deadline <= 0 {
		opts.Deadline = o.defaults.Deadline
	}

	log := o.logger.With("artifact_id", artifactID, "user_id", userID)

	if len(requests) == 0 {
		return &Result{ArtifactID: artifactID}, nil
	}

	worstCase := 0
	for _, req := range requests {
		worstCase += req.CreditCost
	}

	reservation, err := o.ledger.Reserve(ctx, userID, worstCase, len(requests))
	if err != nil {
		log.WarnContext(ctx, "batch rejected at reservation",
			"requested_credits", worstCase,
			"error", err)
		return nil, err
	}

	log.InfoContext(ctx, "batch dispatching",
		"request_count", len(requests),
		"reserved_credits", worstCase,
		"concurrency_limit", opts.ConcurrencyLimit,
		"deadline", opts.Deadline)

	slots := make([]slot, len(requests))
	for i := range slots {
		slots[i].state = StateReserved
	}

	batchCtx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	sem := make(chan struct{}, opts.ConcurrencyLimit)
	var wg sync.WaitGroup

	for i := range requests {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			o.runRequest(batchCtx, requests[idx], &slots[idx], sem)
		}(i)
	}

	wg.Wait()

	result := o.aggregate(artifactID, requests, slots)

	if err := o.ledger.Commit(ctx, reservation.ID, result.TotalCreditsUsed, result.SuccessCount); err != nil {
		// Credits for images that were genuinely produced are already spent;
		// a settlement failure is surfaced in the log for reconciliation, not
		// allowed to discard the batch's outcome.
		log.ErrorContext(ctx, "failed to commit reservation",
			"reservation_id", reservation.ID,
			"actual_used", result.TotalCreditsUsed,
			"error", err)
	}

	log.InfoContext(ctx, "batch resolved",
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
		"credits_used", result.TotalCreditsUsed)

	return result, nil
}

// runRequest drives one slot to a terminal state. In-flight external calls
// are bounded by the semaphore; a request that cannot even acquire a token
// before the deadline fails without ever calling the external service.
func (o *Orchestrator) runRequest(
	ctx context.Context,
	req imagegen.Request,
	s *slot,
	sem chan struct{},
) {
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		s.state = StateFailed
		s.err = fmt.Errorf("timeout: %w", ctx.Err())
		return
	}

	s.state = StateInFlight

	result, err := o.generator.GenerateImage(ctx, req)
	if err != nil {
		s.state = StateFailed
		if ctx.Err() != nil {
			s.err = fmt.Errorf("timeout: %w", ctx.Err())
		} else {
			s.err = err
		}
		return
	}

	s.state = StateSucceeded
	s.result = result
	s.attempts = result.Attempts
}

// aggregate folds the slots, in request order, into the batch result.
func (o *Orchestrator) aggregate(
	artifactID uuid.UUID,
	requests []imagegen.Request,
	slots []slot,
) *Result {
	result := &Result{
		ArtifactID: artifactID,
		Attempts:   make([]int, len(slots)),
	}

	for i, s := range slots {
		req := requests[i]
		result.Attempts[i] = s.attempts

		if s.state != StateSucceeded {
			result.FailureCount++
			result.Errors = append(result.Errors,
				fmt.Sprintf("request %d (%s): %v", i, req.Kind, s.err))
			continue
		}

		result.SuccessCount++
		result.TotalCreditsUsed += req.CreditCost

		switch req.Kind {
		case imagegen.RequestKindMain:
			result.MainImage = s.result.Image
		case imagegen.RequestKindStage:
			result.StageImages = append(result.StageImages, domain.StageImage{
				StageNumber:  req.StageNumber,
				StepID:       req.StepID,
				Image:        *s.result.Image,
				Description:  req.Description,
				KeyMilestone: req.KeyMilestone,
			})
		}
	}

	return result
}

// Package artifact provides the application service that turns an artifact's
// content into a set of generation requests, runs them as one batch, and
// merges the outcome back into the artifact's persistent content model.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/batch"
	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/imagegen"
	"github.com/phrazzld/atelier-api/internal/imagegen/prompt"
	"github.com/phrazzld/atelier-api/internal/imagegen/selector"
	"github.com/phrazzld/atelier-api/internal/store"
)

// Service-level errors.
var (
	// ErrArtifactNotOwned is returned when a user requests generation for an
	// artifact they do not own.
	ErrArtifactNotOwned = errors.New("artifact not owned by user")

	// ErrPersistence is returned when the repository write fails after a
	// batch completed. Credits already committed are not refunded: the
	// images were genuinely produced. The caller may retry persistence
	// separately; the failure is logged for reconciliation.
	ErrPersistence = errors.New("failed to persist artifact after generation")
)

// BatchRunner is the slice of the batch orchestrator the service needs.
type BatchRunner interface {
	GenerateBatch(
		ctx context.Context,
		artifactID uuid.UUID,
		userID uuid.UUID,
		requests []imagegen.Request,
		opts batch.Options,
	) (*batch.Result, error)
}

// GenerateOptions tunes one generation run.
type GenerateOptions struct {
	// IncludeMain requests a primary-subject image in addition to stage images.
	IncludeMain bool

	// StageLimit caps how many steps get an image; zero uses the configured
	// default.
	StageLimit int

	// InputImage optionally carries user-captured reference bytes attached
	// to the main request.
	InputImage []byte

	// Concurrency and deadline overrides; zero uses configured defaults.
	ConcurrencyLimit int
	Deadline         time.Duration
}

// Service orchestrates image generation for artifacts.
type Service struct {
	artifacts store.ArtifactStore
	batches   BatchRunner
	cfg       config.ImageGenConfig
	logger    *slog.Logger
}

// NewService creates the artifact image service.
func NewService(
	artifacts store.ArtifactStore,
	batches BatchRunner,
	cfg config.ImageGenConfig,
	logger *slog.Logger,
) (*Service, error) {
	if artifacts == nil {
		return nil, errors.New("artifact store cannot be nil")
	}
	if batches == nil {
		return nil, errors.New("batch runner cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Service{
		artifacts: artifacts,
		batches:   batches,
		cfg:       cfg,
		logger:    logger.With("component", "artifact_service"),
	}, nil
}

// GenerateImages runs one image-generation batch for the artifact and merges
// the result into its content model.
//
// The returned batch result is valid even when the error is non-nil: an
// ErrPersistence error means generation succeeded but the merged artifact
// could not be written, and the caller may retry persistence with the result
// in hand. Only quota rejection and lookup failures return a nil result.
func (s *Service) GenerateImages(
	ctx context.Context,
	artifactID uuid.UUID,
	userID uuid.UUID,
	opts GenerateOptions,
) (*batch.Result, error) {
	log := s.logger.With("artifact_id", artifactID, "user_id", userID)

	artifact, err := s.artifacts.GetByID(ctx, artifactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}

	if artifact.UserID != userID {
		return nil, ErrArtifactNotOwned
	}

	requests := s.buildRequests(artifact, opts)
	if len(requests) == 0 {
		log.InfoContext(ctx, "nothing to illustrate, skipping batch")
		return &batch.Result{ArtifactID: artifact.ID}, nil
	}

	result, err := s.batches.GenerateBatch(ctx, artifact.ID, userID, requests, batch.Options{
		ConcurrencyLimit: opts.ConcurrencyLimit,
		Deadline:         opts.Deadline,
	})
	if err != nil {
		return nil, err
	}

	merged := Merge(artifact, result)
	if err := s.artifacts.Save(ctx, merged); err != nil {
		log.ErrorContext(ctx, "artifact write failed after completed batch",
			"success_count", result.SuccessCount,
			"credits_used", result.TotalCreditsUsed,
			"error", err)
		return result, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return result, nil
}

// buildRequests assembles the batch: one main request (when asked for) plus
// one stage request per selected step, in ascending step order.
func (s *Service) buildRequests(
	artifact *domain.Artifact,
	opts GenerateOptions,
) []imagegen.Request {
	stageLimit := opts.StageLimit
	if stageLimit <= 0 {
		stageLimit = s.cfg.StageImageLimit
	}

	totalStages := len(artifact.Steps)
	requests := make([]imagegen.Request, 0, stageLimit+1)

	if opts.IncludeMain {
		requests = append(requests, imagegen.Request{
			Kind: imagegen.RequestKindMain,
			Prompt: prompt.ComposeMain(artifact.ContentDomain, prompt.StageContext{
				ArtifactTitle: artifact.Title,
				StyleHint:     artifact.StyleHint,
				TotalStages:   totalStages,
			}),
			CreditCost: 1,
			InputImage: opts.InputImage,
		})
	}

	for _, ref := range selector.Select(artifact.ContentDomain, artifact.Steps, stageLimit) {
		stageNumber := ref.Index + 1
		requests = append(requests, imagegen.Request{
			Kind: imagegen.RequestKindStage,
			Prompt: prompt.ComposeStage(artifact.ContentDomain, prompt.StageContext{
				ArtifactTitle: artifact.Title,
				StepTitle:     ref.Step.Title,
				Description:   ref.Step.Description,
				StyleHint:     artifact.StyleHint,
				StageNumber:   stageNumber,
				TotalStages:   totalStages,
			}),
			CreditCost:   1,
			StageNumber:  stageNumber,
			StepID:       ref.Step.ID,
			Description:  ref.Step.Description,
			KeyMilestone: ref.KeyMilestone,
		})
	}

	return requests
}

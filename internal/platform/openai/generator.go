// Package openai implements the imagegen.Generator interface using the
// OpenAI Images API as an alternate image-generation backend.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/imagegen"
	"github.com/phrazzld/atelier-api/internal/store"
)

// Generator implements imagegen.Generator against the OpenAI Images API.
// It mirrors the Gemini worker's contract: bounded retry of transient
// failures, base64 payload decode, byte-limit enforcement, image store
// handoff.
type Generator struct {
	logger *slog.Logger
	cfg    config.ImageGenConfig
	client sdk.Client
	images store.ImageStore
	model  string

	// call issues one provider attempt. It defaults to callOnce and exists
	// so tests can substitute the API round trip.
	call imagegen.AttemptFunc
}

// NewGenerator creates an OpenAI-backed image generator.
func NewGenerator(
	logger *slog.Logger,
	cfg config.ImageGenConfig,
	images store.ImageStore,
) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if images == nil {
		return nil, errors.New("image store cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", imagegen.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", imagegen.ErrInvalidConfig)
	}

	g := &Generator{
		logger: logger.With("component", "openai_generator"),
		cfg:    cfg,
		client: sdk.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		images: images,
		model:  cfg.ModelName,
	}
	g.call = g.callOnce
	return g, nil
}

func (g *Generator) retryPolicy() imagegen.RetryPolicy {
	return imagegen.RetryPolicy{
		MaxAttempts: g.cfg.MaxAttempts,
		BaseDelay:   time.Duration(g.cfg.BackoffBaseMillis) * time.Millisecond,
	}
}

// GenerateImage resolves one request to a stored image.
func (g *Generator) GenerateImage(
	ctx context.Context,
	req imagegen.Request,
) (*imagegen.Result, error) {
	if req.Prompt == "" {
		return nil, imagegen.ErrEmptyPrompt
	}

	raw, attempts, err := imagegen.CallWithRetry(ctx, g.logger, g.retryPolicy(), req, g.call)
	if err != nil {
		return nil, err
	}

	encoded, err := imagegen.EnforceByteLimit(raw, g.cfg.MaxImageBytes)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s.jpg", uuid.New())
	location, err := g.images.SaveImage(ctx, name, encoded.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to store image bytes: %v", imagegen.ErrGenerationFailed, err)
	}

	image, err := domain.NewGeneratedImage(
		location, req.Prompt, g.model,
		encoded.Width, encoded.Height, req.CreditCost,
	)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "image generated",
		"image_id", image.ID,
		"attempts", attempts,
		"bytes", len(encoded.Data))

	return &imagegen.Result{Image: image, Attempts: attempts}, nil
}

// callOnce makes a single Images API call and base64-decodes the payload.
func (g *Generator) callOnce(ctx context.Context, req imagegen.Request) ([]byte, error) {
	resp, err := g.client.Images.Generate(ctx, sdk.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          sdk.ImageModel(g.model),
		N:              sdk.Int(1),
		ResponseFormat: sdk.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}

	if resp == nil || len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no images in response", imagegen.ErrInvalidResponse)
	}

	payload := resp.Data[0].B64JSON
	if payload == "" {
		return nil, fmt.Errorf("%w: response missing b64_json payload", imagegen.ErrInvalidResponse)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", imagegen.ErrInvalidResponse, err)
	}

	return raw, nil
}

// classifyAPIError maps SDK errors onto the package taxonomy: rate limits
// and server errors are transient, everything else (including rejected
// prompts) is permanent.
func classifyAPIError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: %v", imagegen.ErrTransientFailure, err)
		case apiErr.StatusCode == 400:
			return fmt.Errorf("%w: %v", imagegen.ErrContentBlocked, err)
		default:
			return fmt.Errorf("%w: %v", imagegen.ErrGenerationFailed, err)
		}
	}

	// Transport-level failures without a status are assumed transient.
	return fmt.Errorf("%w: %v", imagegen.ErrTransientFailure, err)
}

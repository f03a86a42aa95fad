package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/imagegen"
	"github.com/phrazzld/atelier-api/internal/store"
	"google.golang.org/genai"
)

// Generator implements imagegen.Generator against the Gemini API. Each call
// resolves one request: issue the generation with bounded retry, decode the
// image payload, enforce the byte limit, and hand the bytes to the image
// store.
type Generator struct {
	logger *slog.Logger
	cfg    config.ImageGenConfig
	client *genai.Client
	images store.ImageStore
	model  string

	// call issues one provider attempt. It defaults to callOnce and exists
	// so tests can substitute the API round trip.
	call imagegen.AttemptFunc
}

// NewGenerator creates a Gemini-backed image generator.
func NewGenerator(
	ctx context.Context,
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
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", imagegen.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", imagegen.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", imagegen.ErrInvalidConfig, err)
	}

	g := &Generator{
		logger: logger.With("component", "gemini_generator"),
		cfg:    cfg,
		client: client,
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

// GenerateImage resolves one request to a stored image. Transient provider
// failures are retried with exponential backoff and jitter up to the
// configured attempt budget; permanent failures return immediately.
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

// callOnce makes a single Gemini API call and extracts the image payload.
func (g *Generator) callOnce(ctx context.Context, req imagegen.Request) ([]byte, error) {
	parts := make([]*genai.Part, 0, 2)
	for _, part := range req.Parts() {
		switch part.Kind {
		case imagegen.PartKindText:
			parts = append(parts, &genai.Part{Text: part.Text})
		case imagegen.PartKindImage:
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: part.MIMEType, Data: part.Data},
			})
		}
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		// Provider/API errors (timeouts, 5xx, rate limits) are assumed
		// transient; structural problems below are permanent.
		return nil, fmt.Errorf("%w: %v", imagegen.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", imagegen.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: blocked by safety filters", imagegen.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", imagegen.ErrInvalidResponse)
	}

	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}

	return nil, fmt.Errorf("%w: response contains no image payload", imagegen.ErrInvalidResponse)
}

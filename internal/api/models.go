package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

// StepRequest is one instruction in an artifact creation payload.
type StepRequest struct {
	Title       string `json:"title"`
	Description string `json:"description" validate:"required,min=1"`
}

// CreateArtifactRequest defines the payload for creating a new artifact.
type CreateArtifactRequest struct {
	Title         string        `json:"title"          validate:"required,min=1,max=200"`
	ContentDomain string        `json:"content_domain" validate:"required,oneof=recipe craft build"`
	StyleHint     string        `json:"style_hint"     validate:"max=100"`
	Steps         []StepRequest `json:"steps"          validate:"required,min=1,dive"`
}

// GenerateImagesRequest defines the payload for requesting image generation.
type GenerateImagesRequest struct {
	IncludeMain bool `json:"include_main"`
	StageLimit  int  `json:"stage_limit" validate:"min=0,max=20"`
}

// GenerateImagesResponse acknowledges an accepted generation request.
// The batch runs in the background; clients poll the artifact for results.
type GenerateImagesResponse struct {
	ArtifactID uuid.UUID `json:"artifact_id"`
	Status     string    `json:"status"`
}

// QuotaResponse reports the user's current generation allowance.
type QuotaResponse struct {
	Tier                 string    `json:"tier"`
	CreditsRemaining     int       `json:"credits_remaining"`
	ImagesGeneratedToday int       `json:"images_generated_today"`
	ImagesRemainingToday int       `json:"images_remaining_today"`
	OnDemandAllowed      bool      `json:"on_demand_allowed"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ArtifactResponse is the full artifact representation returned to clients.
// Image URLs point at generated files; absent images simply omit the fields.
type ArtifactResponse struct {
	ID            uuid.UUID                  `json:"id"`
	Title         string                     `json:"title"`
	ContentDomain string                     `json:"content_domain"`
	StyleHint     string                     `json:"style_hint,omitempty"`
	Steps         []domain.Step              `json:"steps"`
	MainImage     *domain.GeneratedImage     `json:"main_image,omitempty"`
	StageImages   []domain.StageImage        `json:"stage_images,omitempty"`
	Generation    *domain.GenerationMetadata `json:"generation,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// artifactToResponse converts a domain.Artifact to its API representation.
func artifactToResponse(a *domain.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ID:            a.ID,
		Title:         a.Title,
		ContentDomain: string(a.ContentDomain),
		StyleHint:     a.StyleHint,
		Steps:         a.Steps,
		MainImage:     a.MainImage,
		StageImages:   a.StageImages,
		Generation:    a.Generation,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Artifact-specific validation errors
var (
	// ErrArtifactIDEmpty is returned when an artifact ID is empty or nil.
	ErrArtifactIDEmpty = errors.New("artifact ID cannot be empty")

	// ErrArtifactUserIDEmpty is returned when an artifact's user ID is empty or nil.
	ErrArtifactUserIDEmpty = errors.New("artifact user ID cannot be empty")

	// ErrArtifactTitleEmpty is returned when an artifact's title is empty.
	ErrArtifactTitleEmpty = errors.New("artifact title cannot be empty")

	// ErrStepDescriptionEmpty is returned when a step has no descriptive text.
	ErrStepDescriptionEmpty = errors.New("step description cannot be empty")
)

// ContentDomain identifies the kind of project an artifact describes.
// Prompt templates and step-selection keyword tables are chosen per domain.
type ContentDomain string

// Recognized content domains.
const (
	ContentDomainRecipe ContentDomain = "recipe"
	ContentDomainCraft  ContentDomain = "craft"
	ContentDomainBuild  ContentDomain = "build"
)

// Validate checks that the content domain is one of the recognized values.
func (d ContentDomain) Validate() error {
	switch d {
	case ContentDomainRecipe, ContentDomainCraft, ContentDomainBuild:
		return nil
	}
	return ErrInvalidContentDomain
}

// Step is a single instruction within an artifact. Steps are ordered; the
// 1-based position of a step in the artifact's Steps slice is its stage number.
type Step struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// GenerationMetadata records how the artifact's current image set was produced.
type GenerationMetadata struct {
	ModelName    string    `json:"model_name"`
	CreditsSpent int       `json:"credits_spent"`
	GeneratedAt  time.Time `json:"generated_at"`
	// QualityScore is a coarse heuristic in [0, 1]: the fraction of requested
	// images that were actually produced by the last batch.
	QualityScore float64 `json:"quality_score"`
}

// Artifact is the structured content object images are generated for: a
// multi-step guided project such as a recipe or a craft build. The main
// image illustrates the finished result; stage images illustrate individual
// steps.
type Artifact struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	Title         string              `json:"title"`
	ContentDomain ContentDomain       `json:"content_domain"`
	StyleHint     string              `json:"style_hint,omitempty"`
	Steps         []Step              `json:"steps"`
	MainImage     *GeneratedImage     `json:"main_image,omitempty"`
	StageImages   []StageImage        `json:"stage_images,omitempty"`
	Generation    *GenerationMetadata `json:"generation,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewArtifact creates a new Artifact with the given owner, title, domain and
// steps. It generates a new UUID for the artifact and sets timestamps.
// Returns an error if validation fails.
func NewArtifact(
	userID uuid.UUID,
	title string,
	contentDomain ContentDomain,
	steps []Step,
) (*Artifact, error) {
	now := time.Now().UTC()
	artifact := &Artifact{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         title,
		ContentDomain: contentDomain,
		Steps:         steps,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := artifact.Validate(); err != nil {
		return nil, err
	}

	return artifact, nil
}

// Validate checks if the Artifact has valid data.
// Returns an error if any field fails validation.
func (a *Artifact) Validate() error {
	if a.ID == uuid.Nil {
		return ErrArtifactIDEmpty
	}

	if a.UserID == uuid.Nil {
		return ErrArtifactUserIDEmpty
	}

	if a.Title == "" {
		return ErrArtifactTitleEmpty
	}

	if err := a.ContentDomain.Validate(); err != nil {
		return err
	}

	for _, step := range a.Steps {
		if step.Description == "" {
			return ErrStepDescriptionEmpty
		}
	}

	return nil
}

// Touch updates the UpdatedAt timestamp.
func (a *Artifact) Touch() {
	a.UpdatedAt = time.Now().UTC()
}

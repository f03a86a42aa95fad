package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Image-specific validation errors
var (
	// ErrImageIDEmpty is returned when a generated image ID is empty or nil.
	ErrImageIDEmpty = errors.New("image ID cannot be empty")

	// ErrImageLocationEmpty is returned when a generated image has no storage location.
	ErrImageLocationEmpty = errors.New("image location cannot be empty")

	// ErrStageNumberInvalid is returned when a stage image's stage number is not positive.
	ErrStageNumberInvalid = errors.New("stage number must be 1-based and positive")
)

// GeneratedImage is one image produced by the external generation service.
// It is created only on a successful generation call and persists for as long
// as the owning artifact references it.
type GeneratedImage struct {
	ID         uuid.UUID `json:"id"`
	Location   string    `json:"location"`
	Prompt     string    `json:"prompt"`
	ModelName  string    `json:"model_name"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreditCost int       `json:"credit_cost"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewGeneratedImage creates a GeneratedImage with a fresh UUID and timestamp.
// Returns an error if validation fails.
func NewGeneratedImage(
	location, prompt, modelName string,
	width, height, creditCost int,
) (*GeneratedImage, error) {
	img := &GeneratedImage{
		ID:         uuid.New(),
		Location:   location,
		Prompt:     prompt,
		ModelName:  modelName,
		Width:      width,
		Height:     height,
		CreditCost: creditCost,
		CreatedAt:  time.Now().UTC(),
	}

	if err := img.Validate(); err != nil {
		return nil, err
	}

	return img, nil
}

// Validate checks if the GeneratedImage has valid data.
func (i *GeneratedImage) Validate() error {
	if i.ID == uuid.Nil {
		return ErrImageIDEmpty
	}

	if i.Location == "" {
		return ErrImageLocationEmpty
	}

	return nil
}

// StageImage ties a generated image to one step of an artifact. StageNumber
// is 1-based and matches the step's position in the artifact's source order,
// independent of the order in which images finished generating.
type StageImage struct {
	StageNumber  int            `json:"stage_number"`
	StepID       uuid.UUID      `json:"step_id,omitempty"`
	Image        GeneratedImage `json:"image"`
	Description  string         `json:"description"`
	KeyMilestone bool           `json:"key_milestone"`
}

// Validate checks if the StageImage has valid data.
func (s *StageImage) Validate() error {
	if s.StageNumber < 1 {
		return ErrStageNumberInvalid
	}

	return s.Image.Validate()
}

package imagegen

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// RequestKind distinguishes the artifact's primary-subject image from the
// per-step stage images.
type RequestKind string

// Recognized request kinds.
const (
	RequestKindMain  RequestKind = "main"
	RequestKindStage RequestKind = "stage"
)

// Request describes one image to generate. Requests are immutable once
// created: they are built when a batch is assembled and discarded after the
// batch resolves.
type Request struct {
	Kind        RequestKind
	Prompt      string
	Style       string
	AspectRatio string
	Quality     string
	CreditCost  int

	// InputImage optionally carries reference bytes (for example a photo the
	// user captured) handed to the provider alongside the prompt.
	InputImage []byte

	// Stage context, set only for RequestKindStage.
	StageNumber  int
	StepID       uuid.UUID
	Description  string
	KeyMilestone bool
}

// PartKind tags one part of the outbound provider request.
type PartKind string

// Recognized part kinds.
const (
	PartKindText  PartKind = "text"
	PartKindImage PartKind = "image"
)

// Part is one tagged piece of the outbound request: prompt text or reference
// image bytes. Provider adapters translate parts into their SDK's own types.
type Part struct {
	Kind     PartKind
	Text     string
	Data     []byte
	MIMEType string
}

// Parts decomposes the request into its outbound parts: always the prompt
// text, plus the reference image when one is attached.
func (r Request) Parts() []Part {
	parts := []Part{{Kind: PartKindText, Text: r.Prompt}}
	if len(r.InputImage) > 0 {
		parts = append(parts, Part{
			Kind:     PartKindImage,
			Data:     r.InputImage,
			MIMEType: "image/jpeg",
		})
	}
	return parts
}

// Result is the terminal outcome of a successful generation call.
type Result struct {
	// Image is the stored generated image.
	Image *domain.GeneratedImage

	// Attempts is how many calls against the external service were made
	// before one succeeded, including the successful one.
	Attempts int
}

// Generator performs one generation request against an external image
// service, including retry of transient failures, payload decoding, byte-size
// enforcement and handing the bytes to the image store. It is the per-request
// worker the batch orchestrator fans out over.
type Generator interface {
	// GenerateImage resolves a single request to a stored image or an error.
	// Errors wrap ErrTransientFailure (retry budget exhausted), ErrContentBlocked
	// or ErrInvalidResponse (permanent), per the package error taxonomy.
	GenerateImage(ctx context.Context, req Request) (*Result, error)
}

package store

import "context"

// ImageStore is the storage collaborator generated image bytes are handed to.
// It returns an opaque location reference that is embedded in the generated
// image's record; the core does not interpret the location's format.
type ImageStore interface {
	// SaveImage persists the image bytes and returns their location reference.
	SaveImage(ctx context.Context, name string, data []byte) (string, error)
}

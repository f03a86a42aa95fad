package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/events"
	"github.com/phrazzld/atelier-api/internal/store"
	"github.com/phrazzld/atelier-api/internal/task"
)

// ArtifactHandler handles artifact-related HTTP requests: creation, lookup
// and image-generation requests.
type ArtifactHandler struct {
	artifacts store.ArtifactStore
	emitter   events.EventEmitter
	logger    *slog.Logger
}

// NewArtifactHandler creates a new ArtifactHandler.
func NewArtifactHandler(
	artifacts store.ArtifactStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) *ArtifactHandler {
	return &ArtifactHandler{
		artifacts: artifacts,
		emitter:   emitter,
		logger:    logger.With("component", "artifact_handler"),
	}
}

// CreateArtifact handles POST /api/artifacts.
func (h *ArtifactHandler) CreateArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateArtifactRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	steps := make([]domain.Step, len(req.Steps))
	for i, s := range req.Steps {
		steps[i] = domain.Step{
			ID:          uuid.New(),
			Title:       s.Title,
			Description: s.Description,
		}
	}

	artifact, err := domain.NewArtifact(userID, req.Title, domain.ContentDomain(req.ContentDomain), steps)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid artifact data")
		return
	}
	artifact.StyleHint = req.StyleHint

	if err := h.artifacts.Save(r.Context(), artifact); err != nil {
		HandleAPIError(w, r, err, "Failed to create artifact")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, artifactToResponse(artifact))
}

// GetArtifact handles GET /api/artifacts/{id}. Clients poll this endpoint
// after requesting generation; image fields appear once the batch lands.
func (h *ArtifactHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	artifactID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	artifact, err := h.artifacts.GetByID(r.Context(), artifactID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if artifact.UserID != userID {
		HandleAPIError(w, r, domain.ErrUnauthorized, "You do not own this artifact")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, artifactToResponse(artifact))
}

// GenerateImages handles POST /api/artifacts/{id}/images. It verifies
// ownership, emits a task-request event and returns 202; the batch runs in
// the background and the client polls the artifact.
func (h *ArtifactHandler) GenerateImages(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	artifactID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req GenerateImagesRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	// Ownership is checked again inside the batch, but rejecting here keeps
	// bogus requests out of the task queue.
	artifact, err := h.artifacts.GetByID(r.Context(), artifactID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if artifact.UserID != userID {
		HandleAPIError(w, r, domain.ErrUnauthorized, "You do not own this artifact")
		return
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeImageGeneration, map[string]interface{}{
		"artifact_id":  artifactID.String(),
		"user_id":      userID.String(),
		"include_main": req.IncludeMain,
		"stage_limit":  req.StageLimit,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to request generation")
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		HandleAPIError(w, r, err, "Failed to request generation")
		return
	}

	h.logger.InfoContext(r.Context(), "image generation requested",
		"artifact_id", artifactID,
		"user_id", userID,
		"include_main", req.IncludeMain,
		"stage_limit", req.StageLimit)

	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerateImagesResponse{
		ArtifactID: artifactID,
		Status:     "accepted",
	})
}

// DeleteArtifact handles DELETE /api/artifacts/{id}.
func (h *ArtifactHandler) DeleteArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	artifactID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	artifact, err := h.artifacts.GetByID(r.Context(), artifactID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if artifact.UserID != userID {
		HandleAPIError(w, r, domain.ErrUnauthorized, "You do not own this artifact")
		return
	}

	if err := h.artifacts.Delete(r.Context(), artifactID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete artifact")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/events"
	"github.com/phrazzld/atelier-api/internal/store"
	"github.com/phrazzld/atelier-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockArtifactStore implements store.ArtifactStore with settable Fn fields.
type mockArtifactStore struct {
	saveFn    func(ctx context.Context, artifact *domain.Artifact) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error)
	deleteFn  func(ctx context.Context, id uuid.UUID) error

	saved   *domain.Artifact
	deleted []uuid.UUID
}

func (m *mockArtifactStore) Save(ctx context.Context, artifact *domain.Artifact) error {
	m.saved = artifact
	if m.saveFn != nil {
		return m.saveFn(ctx, artifact)
	}
	return nil
}

func (m *mockArtifactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrArtifactNotFound
}

func (m *mockArtifactStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockArtifactStore) WithTx(tx *sql.Tx) store.ArtifactStore { return m }

// mockEmitter records emitted events.
type mockEmitter struct {
	emitEventFn func(ctx context.Context, event *events.TaskRequestEvent) error

	emitted []*events.TaskRequestEvent
}

func (m *mockEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	m.emitted = append(m.emitted, event)
	if m.emitEventFn != nil {
		return m.emitEventFn(ctx, event)
	}
	return nil
}

// artifactRouter mounts the handler under the real routes with a middleware
// that injects the authenticated user, matching what the auth middleware does.
func artifactRouter(handler *ArtifactHandler, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/artifacts", handler.CreateArtifact)
	r.Get("/artifacts/{id}", handler.GetArtifact)
	r.Delete("/artifacts/{id}", handler.DeleteArtifact)
	r.Post("/artifacts/{id}/images", handler.GenerateImages)
	return r
}

func newArtifactHandler(artifacts store.ArtifactStore, emitter events.EventEmitter) *ArtifactHandler {
	return NewArtifactHandler(artifacts, emitter, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func ownedArtifact(t *testing.T, userID uuid.UUID) *domain.Artifact {
	t.Helper()
	a, err := domain.NewArtifact(userID, "Woven Basket", domain.ContentDomainCraft, []domain.Step{
		{ID: uuid.New(), Title: "Gather", Description: "Gather and cut the reeds"},
		{ID: uuid.New(), Title: "Weave", Description: "Weave the base and walls"},
	})
	require.NoError(t, err)
	return a
}

func TestCreateArtifact(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	artifacts := &mockArtifactStore{}
	router := artifactRouter(newArtifactHandler(artifacts, &mockEmitter{}), userID)

	body, err := json.Marshal(CreateArtifactRequest{
		Title:         "Woven Basket",
		ContentDomain: "craft",
		StyleHint:     "rustic",
		Steps: []StepRequest{
			{Title: "Gather", Description: "Gather and cut the reeds"},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/artifacts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp ArtifactResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Woven Basket", resp.Title)
	assert.Equal(t, "craft", resp.ContentDomain)
	assert.Equal(t, "rustic", resp.StyleHint)
	require.Len(t, resp.Steps, 1)
	assert.NotEqual(t, uuid.Nil, resp.Steps[0].ID, "steps get server-assigned IDs")

	require.NotNil(t, artifacts.saved)
	assert.Equal(t, userID, artifacts.saved.UserID)
}

func TestCreateArtifactRejectsUnknownContentDomain(t *testing.T) {
	t.Parallel()

	router := artifactRouter(newArtifactHandler(&mockArtifactStore{}, &mockEmitter{}), uuid.New())

	body, err := json.Marshal(CreateArtifactRequest{
		Title:         "Woven Basket",
		ContentDomain: "sculpture",
		Steps:         []StepRequest{{Description: "do the thing"}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/artifacts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetArtifact(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	a := ownedArtifact(t, userID)
	artifacts := &mockArtifactStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
			if id == a.ID {
				return a, nil
			}
			return nil, store.ErrArtifactNotFound
		},
	}
	router := artifactRouter(newArtifactHandler(artifacts, &mockEmitter{}), userID)

	req := httptest.NewRequest(http.MethodGet, "/artifacts/"+a.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp ArtifactResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, a.ID, resp.ID)
}

func TestGetArtifactNotOwned(t *testing.T) {
	t.Parallel()

	a := ownedArtifact(t, uuid.New())
	artifacts := &mockArtifactStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
			return a, nil
		},
	}
	router := artifactRouter(newArtifactHandler(artifacts, &mockEmitter{}), uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/artifacts/"+a.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGetArtifactNotFound(t *testing.T) {
	t.Parallel()

	router := artifactRouter(newArtifactHandler(&mockArtifactStore{}, &mockEmitter{}), uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/artifacts/"+uuid.NewString(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetArtifactBadID(t *testing.T) {
	t.Parallel()

	router := artifactRouter(newArtifactHandler(&mockArtifactStore{}, &mockEmitter{}), uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/artifacts/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerateImagesAccepted(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	a := ownedArtifact(t, userID)
	artifacts := &mockArtifactStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
			return a, nil
		},
	}
	emitter := &mockEmitter{}
	router := artifactRouter(newArtifactHandler(artifacts, emitter), userID)

	body, err := json.Marshal(GenerateImagesRequest{IncludeMain: true, StageLimit: 3})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/artifacts/"+a.ID.String()+"/images", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp GenerateImagesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, a.ID, resp.ArtifactID)
	assert.Equal(t, "accepted", resp.Status)

	require.Len(t, emitter.emitted, 1)
	event := emitter.emitted[0]
	assert.Equal(t, task.TaskTypeImageGeneration, event.Type)

	var payload struct {
		ArtifactID  string `json:"artifact_id"`
		UserID      string `json:"user_id"`
		IncludeMain bool   `json:"include_main"`
		StageLimit  int    `json:"stage_limit"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, a.ID.String(), payload.ArtifactID)
	assert.Equal(t, userID.String(), payload.UserID)
	assert.True(t, payload.IncludeMain)
	assert.Equal(t, 3, payload.StageLimit)
}

func TestGenerateImagesNotOwned(t *testing.T) {
	t.Parallel()

	a := ownedArtifact(t, uuid.New())
	artifacts := &mockArtifactStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
			return a, nil
		},
	}
	emitter := &mockEmitter{}
	router := artifactRouter(newArtifactHandler(artifacts, emitter), uuid.New())

	body, err := json.Marshal(GenerateImagesRequest{IncludeMain: true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/artifacts/"+a.ID.String()+"/images", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, emitter.emitted, "foreign requests never reach the task queue")
}

func TestGenerateImagesStageLimitTooHigh(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	a := ownedArtifact(t, userID)
	artifacts := &mockArtifactStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
			return a, nil
		},
	}
	router := artifactRouter(newArtifactHandler(artifacts, &mockEmitter{}), userID)

	body, err := json.Marshal(GenerateImagesRequest{StageLimit: 50})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/artifacts/"+a.ID.String()+"/images", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteArtifact(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	a := ownedArtifact(t, userID)
	artifacts := &mockArtifactStore{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
			return a, nil
		},
	}
	router := artifactRouter(newArtifactHandler(artifacts, &mockEmitter{}), userID)

	req := httptest.NewRequest(http.MethodDelete, "/artifacts/"+a.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, artifacts.deleted, 1)
	assert.Equal(t, a.ID, artifacts.deleted[0])
}

package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handlerFunc adapts a function to the EventHandler interface.
type handlerFunc func(ctx context.Context, event *TaskRequestEvent) error

func (f handlerFunc) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	return f(ctx, event)
}

func testEmitter() *InMemoryEventEmitter {
	return NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEmitEventDeliversToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := testEmitter()
	var first, second int
	emitter.RegisterHandler(handlerFunc(func(ctx context.Context, event *TaskRequestEvent) error {
		first++
		return nil
	}))
	emitter.RegisterHandler(handlerFunc(func(ctx context.Context, event *TaskRequestEvent) error {
		second++
		return nil
	}))

	event, err := NewTaskRequestEvent("artifact_image_generation", map[string]string{"artifact_id": "a"})
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestEmitEventContinuesPastFailingHandler(t *testing.T) {
	t.Parallel()

	emitter := testEmitter()
	wantErr := errors.New("queue is full")
	var reached bool
	emitter.RegisterHandler(handlerFunc(func(ctx context.Context, event *TaskRequestEvent) error {
		return wantErr
	}))
	emitter.RegisterHandler(handlerFunc(func(ctx context.Context, event *TaskRequestEvent) error {
		reached = true
		return errors.New("second failure")
	}))

	event, err := NewTaskRequestEvent("artifact_image_generation", map[string]string{})
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, wantErr, "the first error wins")
	assert.True(t, reached, "later handlers still run")
}

func TestEmitEventNoHandlers(t *testing.T) {
	t.Parallel()

	emitter := testEmitter()
	event, err := NewTaskRequestEvent("artifact_image_generation", map[string]string{})
	require.NoError(t, err)

	assert.NoError(t, emitter.EmitEvent(context.Background(), event))
}

func TestUnmarshalPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	event, err := NewTaskRequestEvent("artifact_image_generation", map[string]any{
		"artifact_id":  "11111111-2222-3333-4444-555555555555",
		"include_main": true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, event.ID.String(), "00000000-0000-0000-0000-000000000000")

	var payload struct {
		ArtifactID  string `json:"artifact_id"`
		IncludeMain bool   `json:"include_main"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", payload.ArtifactID)
	assert.True(t, payload.IncludeMain)
}

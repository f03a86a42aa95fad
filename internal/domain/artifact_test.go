package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSteps() []Step {
	return []Step{
		{ID: uuid.New(), Title: "Prep", Description: "Chop the onions finely"},
		{ID: uuid.New(), Title: "Cook", Description: "Simmer until golden"},
	}
}

func TestNewArtifact(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	artifact, err := NewArtifact(userID, "French Onion Soup", ContentDomainRecipe, validSteps())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, artifact.ID)
	assert.Equal(t, userID, artifact.UserID)
	assert.Equal(t, ContentDomainRecipe, artifact.ContentDomain)
	assert.False(t, artifact.CreatedAt.IsZero())
	assert.Equal(t, artifact.CreatedAt, artifact.UpdatedAt)
	assert.Nil(t, artifact.MainImage)
	assert.Empty(t, artifact.StageImages)
}

func TestNewArtifactValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		userID  uuid.UUID
		title   string
		domain  ContentDomain
		steps   []Step
		wantErr error
	}{
		{
			name:    "missing user ID",
			userID:  uuid.Nil,
			title:   "Bookshelf",
			domain:  ContentDomainBuild,
			steps:   validSteps(),
			wantErr: ErrArtifactUserIDEmpty,
		},
		{
			name:    "empty title",
			userID:  uuid.New(),
			title:   "",
			domain:  ContentDomainCraft,
			steps:   validSteps(),
			wantErr: ErrArtifactTitleEmpty,
		},
		{
			name:    "unknown content domain",
			userID:  uuid.New(),
			title:   "Bookshelf",
			domain:  ContentDomain("painting"),
			steps:   validSteps(),
			wantErr: ErrInvalidContentDomain,
		},
		{
			name:   "step without description",
			userID: uuid.New(),
			title:  "Bookshelf",
			domain: ContentDomainBuild,
			steps: []Step{
				{ID: uuid.New(), Title: "Cut", Description: ""},
			},
			wantErr: ErrStepDescriptionEmpty,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewArtifact(tt.userID, tt.title, tt.domain, tt.steps)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestContentDomainValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ContentDomainRecipe.Validate())
	assert.NoError(t, ContentDomainCraft.Validate())
	assert.NoError(t, ContentDomainBuild.Validate())
	assert.ErrorIs(t, ContentDomain("").Validate(), ErrInvalidContentDomain)
	assert.ErrorIs(t, ContentDomain("garden").Validate(), ErrInvalidContentDomain)
}

func TestArtifactTouch(t *testing.T) {
	t.Parallel()

	artifact, err := NewArtifact(uuid.New(), "Macrame Hanger", ContentDomainCraft, validSteps())
	require.NoError(t, err)

	created := artifact.CreatedAt
	before := artifact.UpdatedAt
	artifact.Touch()
	assert.False(t, artifact.UpdatedAt.Before(before))
	assert.Equal(t, created, artifact.CreatedAt, "CreatedAt must not change")
}

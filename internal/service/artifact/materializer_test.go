package artifact

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/batch"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact(t *testing.T) *domain.Artifact {
	t.Helper()
	a, err := domain.NewArtifact(uuid.New(), "Sourdough Boule", domain.ContentDomainRecipe, []domain.Step{
		{ID: uuid.New(), Title: "Mix", Description: "Mix flour and water"},
		{ID: uuid.New(), Title: "Bake", Description: "Bake until golden"},
	})
	require.NoError(t, err)
	return a
}

func stageImage(stageNumber int, model string) domain.StageImage {
	return domain.StageImage{
		StageNumber: stageNumber,
		StepID:      uuid.New(),
		Image: domain.GeneratedImage{
			Location:  "images/" + uuid.NewString() + ".jpg",
			ModelName: model,
		},
	}
}

func TestMergeReplacesImagesOnSuccess(t *testing.T) {
	t.Parallel()

	a := testArtifact(t)
	a.MainImage = &domain.GeneratedImage{Location: "images/old-main.jpg", ModelName: "old-model"}
	a.StageImages = []domain.StageImage{stageImage(1, "old-model")}

	result := &batch.Result{
		ArtifactID:       a.ID,
		MainImage:        &domain.GeneratedImage{Location: "images/new-main.jpg", ModelName: "new-model"},
		StageImages:      []domain.StageImage{stageImage(1, "new-model"), stageImage(2, "new-model")},
		TotalCreditsUsed: 3,
		SuccessCount:     3,
	}

	merged := Merge(a, result)

	assert.Equal(t, "images/new-main.jpg", merged.MainImage.Location)
	require.Len(t, merged.StageImages, 2)
	require.NotNil(t, merged.Generation)
	assert.Equal(t, "new-model", merged.Generation.ModelName)
	assert.Equal(t, 3, merged.Generation.CreditsSpent)
	assert.InDelta(t, 1.0, merged.Generation.QualityScore, 1e-9)
}

func TestMergeKeepsOldImagesWhenBatchFullyFailed(t *testing.T) {
	t.Parallel()

	a := testArtifact(t)
	a.MainImage = &domain.GeneratedImage{Location: "images/old-main.jpg", ModelName: "old-model"}
	a.StageImages = []domain.StageImage{stageImage(1, "old-model")}

	result := &batch.Result{
		ArtifactID:   a.ID,
		FailureCount: 3,
		Errors:       []string{"request 0 (main): boom", "request 1 (stage): boom", "request 2 (stage): boom"},
	}

	merged := Merge(a, result)

	assert.Equal(t, "images/old-main.jpg", merged.MainImage.Location, "a failed regeneration must not wipe the existing main image")
	require.Len(t, merged.StageImages, 1)
	assert.Equal(t, "old-model", merged.StageImages[0].Image.ModelName)

	// The attempt is still recorded.
	require.NotNil(t, merged.Generation)
	assert.Zero(t, merged.Generation.CreditsSpent)
	assert.Empty(t, merged.Generation.ModelName)
	assert.Zero(t, merged.Generation.QualityScore)
}

func TestMergePartialBatch(t *testing.T) {
	t.Parallel()

	a := testArtifact(t)
	a.MainImage = &domain.GeneratedImage{Location: "images/old-main.jpg", ModelName: "old-model"}

	// Main failed, one stage succeeded out of four requests.
	result := &batch.Result{
		ArtifactID:       a.ID,
		StageImages:      []domain.StageImage{stageImage(2, "new-model")},
		TotalCreditsUsed: 1,
		SuccessCount:     1,
		FailureCount:     3,
	}

	merged := Merge(a, result)

	assert.Equal(t, "images/old-main.jpg", merged.MainImage.Location)
	require.Len(t, merged.StageImages, 1)
	assert.Equal(t, 2, merged.StageImages[0].StageNumber)
	assert.Equal(t, "new-model", merged.Generation.ModelName)
	assert.InDelta(t, 0.25, merged.Generation.QualityScore, 1e-9)
}

func TestMergeTouchesUpdatedAt(t *testing.T) {
	t.Parallel()

	a := testArtifact(t)
	before := a.UpdatedAt
	time.Sleep(time.Millisecond)

	merged := Merge(a, &batch.Result{ArtifactID: a.ID})

	assert.True(t, merged.UpdatedAt.After(before))
	assert.False(t, merged.Generation.GeneratedAt.IsZero())
}

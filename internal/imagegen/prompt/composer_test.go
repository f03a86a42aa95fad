package prompt

import (
	"testing"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestComposeMainPerDomain(t *testing.T) {
	t.Parallel()

	stage := StageContext{ArtifactTitle: "Walnut Side Table", StyleHint: "rustic"}

	recipe := ComposeMain(domain.ContentDomainRecipe, stage)
	assert.Contains(t, recipe, "food photograph")
	assert.Contains(t, recipe, "Walnut Side Table")
	assert.Contains(t, recipe, "rustic cuisine")

	craft := ComposeMain(domain.ContentDomainCraft, stage)
	assert.Contains(t, craft, "finished piece")
	assert.Contains(t, craft, "rustic style")

	build := ComposeMain(domain.ContentDomainBuild, stage)
	assert.Contains(t, build, "completed project")
	assert.Contains(t, build, "rustic setting")
}

func TestComposeMainDefaultStyleHints(t *testing.T) {
	t.Parallel()

	stage := StageContext{ArtifactTitle: "Shakshuka"}

	assert.Contains(t, ComposeMain(domain.ContentDomainRecipe, stage), "international cuisine")
	assert.Contains(t, ComposeMain(domain.ContentDomainCraft, stage), "handmade style")
	assert.Contains(t, ComposeMain(domain.ContentDomainBuild, stage), "workshop setting")
}

func TestComposeStageIncludesPosition(t *testing.T) {
	t.Parallel()

	stage := StageContext{
		ArtifactTitle: "Shakshuka",
		Description:   "Crack the eggs into the simmering sauce",
		StageNumber:   3,
		TotalStages:   5,
	}

	got := ComposeStage(domain.ContentDomainRecipe, stage)
	assert.Contains(t, got, "step 3 of 5")
	assert.Contains(t, got, "Crack the eggs into the simmering sauce")
	assert.Contains(t, got, "Shakshuka")
	assert.Contains(t, got, "no text")
}

func TestComposeIsDeterministic(t *testing.T) {
	t.Parallel()

	stage := StageContext{
		ArtifactTitle: "Birdhouse",
		Description:   "Attach the roof panels",
		StageNumber:   4,
		TotalStages:   6,
	}

	first := ComposeStage(domain.ContentDomainBuild, stage)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ComposeStage(domain.ContentDomainBuild, stage))
	}
}

func TestComposeUnknownDomainFallsBack(t *testing.T) {
	t.Parallel()

	stage := StageContext{ArtifactTitle: "Mystery", Description: "Do the thing"}

	got := ComposeMain(domain.ContentDomain("origami"), stage)
	assert.Equal(t, "Photograph of Mystery: Do the thing", got)

	got = ComposeStage(domain.ContentDomain("origami"), stage)
	assert.Equal(t, "Photograph of Mystery: Do the thing", got)
}

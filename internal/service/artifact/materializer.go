package artifact

import (
	"time"

	"github.com/phrazzld/atelier-api/internal/batch"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// Merge folds a completed batch into the artifact's content model and
// returns the updated artifact.
//
// Merge never destroys previous good state: the main image is replaced only
// if the batch produced one, and the stage-image collection is replaced only
// if the batch produced at least one stage image. A fully-failed
// regeneration therefore leaves the existing image set intact, while the
// generation metadata still records the attempt.
func Merge(artifact *domain.Artifact, result *batch.Result) *domain.Artifact {
	if result.MainImage != nil {
		artifact.MainImage = result.MainImage
	}

	if len(result.StageImages) > 0 {
		artifact.StageImages = result.StageImages
	}

	artifact.Generation = &domain.GenerationMetadata{
		ModelName:    modelName(result),
		CreditsSpent: result.TotalCreditsUsed,
		GeneratedAt:  time.Now().UTC(),
		QualityScore: qualityScore(result),
	}

	artifact.Touch()
	return artifact
}

// modelName reports which model produced the batch, taken from any
// successful image. A fully-failed batch leaves it empty.
func modelName(result *batch.Result) string {
	if result.MainImage != nil {
		return result.MainImage.ModelName
	}
	if len(result.StageImages) > 0 {
		return result.StageImages[0].Image.ModelName
	}
	return ""
}

// qualityScore is the coarse heuristic recorded on the artifact: the
// fraction of submitted requests that produced an image.
func qualityScore(result *batch.Result) float64 {
	total := result.SuccessCount + result.FailureCount
	if total == 0 {
		return 0
	}
	return float64(result.SuccessCount) / float64(total)
}

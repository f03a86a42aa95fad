// Package selector decides which steps of a multi-step artifact deserve an
// illustration when not every step gets one. Selection is a pure heuristic
// over the steps' descriptive text and is deterministic for identical input.
package selector

import (
	"sort"
	"strings"

	"github.com/phrazzld/atelier-api/internal/domain"
)

// Keyword weights. Preparatory actions score low, transformative or critical
// actions score high, finishing actions score highest.
const (
	weightPreparatory  = 1
	weightTransforming = 3
	weightFinishing    = 5
)

// A step scoring at or above this is flagged as a key milestone.
const milestoneThreshold = weightFinishing

var keywordWeights = map[domain.ContentDomain]map[string]int{
	domain.ContentDomainRecipe: {
		"chop": weightPreparatory, "dice": weightPreparatory, "measure": weightPreparatory,
		"rinse": weightPreparatory, "peel": weightPreparatory, "preheat": weightPreparatory,
		"mix": weightTransforming, "knead": weightTransforming, "fold": weightTransforming,
		"simmer": weightTransforming, "sear": weightTransforming, "roast": weightTransforming,
		"bake": weightTransforming, "fry": weightTransforming, "reduce": weightTransforming,
		"caramelize": weightTransforming, "marinate": weightTransforming,
		"plate": weightFinishing, "garnish": weightFinishing, "glaze": weightFinishing,
		"serve": weightFinishing, "rest": weightFinishing,
	},
	domain.ContentDomainCraft: {
		"gather": weightPreparatory, "trace": weightPreparatory, "cut": weightPreparatory,
		"pin": weightPreparatory, "prepare": weightPreparatory,
		"sew": weightTransforming, "weave": weightTransforming, "shape": weightTransforming,
		"mold": weightTransforming, "carve": weightTransforming, "glue": weightTransforming,
		"stitch": weightTransforming, "fire": weightTransforming,
		"paint": weightFinishing, "varnish": weightFinishing, "polish": weightFinishing,
		"finish": weightFinishing, "display": weightFinishing,
	},
	domain.ContentDomainBuild: {
		"plan": weightPreparatory, "mark": weightPreparatory, "drill": weightPreparatory,
		"saw": weightPreparatory, "sand": weightPreparatory,
		"assemble": weightTransforming, "join": weightTransforming, "mount": weightTransforming,
		"weld": weightTransforming, "wire": weightTransforming, "fasten": weightTransforming,
		"install": weightFinishing, "seal": weightFinishing, "test": weightFinishing,
		"stain": weightFinishing, "complete": weightFinishing,
	},
}

// StepRef is one selected step with its original position preserved.
type StepRef struct {
	// Index is the step's 0-based position in the artifact's source order.
	Index int

	Step  domain.Step
	Score int

	// KeyMilestone marks steps whose score indicates a critical or finishing
	// action; downstream it becomes the stage image's milestone flag.
	KeyMilestone bool
}

// Select scores each step by summing the weights of the domain's keywords
// matched against the step's text, drops zero-scoring steps, and keeps at
// most limit of the highest-scoring ones. Ties break toward the earlier step
// so repeated calls on the same input always pick the same set. The result
// is returned in ascending source order, not score order, so consumers see
// the artifact's narrative order.
func Select(contentDomain domain.ContentDomain, steps []domain.Step, limit int) []StepRef {
	if limit <= 0 || len(steps) == 0 {
		return nil
	}

	weights := keywordWeights[contentDomain]

	scored := make([]StepRef, 0, len(steps))
	for i, step := range steps {
		score := scoreStep(weights, step)
		if score == 0 {
			continue
		}

		scored = append(scored, StepRef{
			Index:        i,
			Step:         step,
			Score:        score,
			KeyMilestone: score >= milestoneThreshold,
		})
	}

	// Descending score, ascending index on ties.
	sort.Slice(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Index < scored[b].Index
	})

	if len(scored) == 0 {
		return nil
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	// Back to narrative order for downstream consumers.
	sort.Slice(scored, func(a, b int) bool {
		return scored[a].Index < scored[b].Index
	})

	return scored
}

func scoreStep(weights map[string]int, step domain.Step) int {
	text := strings.ToLower(step.Title + " " + step.Description)

	score := 0
	for keyword, weight := range weights {
		if strings.Contains(text, keyword) {
			score += weight
		}
	}

	return score
}

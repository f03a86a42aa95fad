// Package prompt composes the text prompts sent to the image-generation
// service. Composition is pure and deterministic: the same domain and stage
// context always yield the same prompt, and no I/O happens here.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/phrazzld/atelier-api/internal/domain"
)

// StageContext carries the fields the templates draw from. Optional fields
// left empty fall back to per-domain defaults.
type StageContext struct {
	ArtifactTitle string
	StepTitle     string
	Description   string
	StyleHint     string
	StageNumber   int
	TotalStages   int
}

// Per-domain defaults applied when the artifact carries no style hint.
var defaultStyleHints = map[domain.ContentDomain]string{
	domain.ContentDomainRecipe: "international",
	domain.ContentDomainCraft:  "handmade",
	domain.ContentDomainBuild:  "workshop",
}

const fallbackStyleHint = "clean, neutral"

var mainTemplates = map[domain.ContentDomain]*template.Template{
	domain.ContentDomainRecipe: template.Must(template.New("recipe_main").Parse(
		"Professional food photograph of {{.ArtifactTitle}}, {{.StyleHint}} cuisine, " +
			"plated and ready to serve, natural lighting, shallow depth of field, " +
			"appetizing presentation, no text or watermarks.",
	)),
	domain.ContentDomainCraft: template.Must(template.New("craft_main").Parse(
		"Studio photograph of the finished piece: {{.ArtifactTitle}}, {{.StyleHint}} style, " +
			"displayed on a clean surface, soft diffuse lighting, " +
			"crisp detail on materials and texture, no text or watermarks.",
	)),
	domain.ContentDomainBuild: template.Must(template.New("build_main").Parse(
		"Photograph of the completed project: {{.ArtifactTitle}}, {{.StyleHint}} setting, " +
			"shown fully assembled from a three-quarter angle, even lighting, " +
			"realistic materials, no text or watermarks.",
	)),
}

var stageTemplates = map[domain.ContentDomain]*template.Template{
	domain.ContentDomainRecipe: template.Must(template.New("recipe_stage").Parse(
		"Overhead cooking photograph for step {{.StageNumber}} of {{.TotalStages}} while making " +
			"{{.ArtifactTitle}} ({{.StyleHint}} cuisine): {{.Description}}. " +
			"Hands-in-frame instructional style, bright kitchen lighting, no text.",
	)),
	domain.ContentDomainCraft: template.Must(template.New("craft_stage").Parse(
		"Close-up instructional photograph for step {{.StageNumber}} of {{.TotalStages}} of " +
			"{{.ArtifactTitle}} ({{.StyleHint}} style): {{.Description}}. " +
			"Workbench setting, tools visible, clear focus on the action, no text.",
	)),
	domain.ContentDomainBuild: template.Must(template.New("build_stage").Parse(
		"Instructional photograph for step {{.StageNumber}} of {{.TotalStages}} of building " +
			"{{.ArtifactTitle}}: {{.Description}}. " +
			"{{.StyleHint}} environment, work-in-progress view, clear and well lit, no text.",
	)),
}

// ComposeMain renders the prompt for an artifact's primary-subject image.
func ComposeMain(contentDomain domain.ContentDomain, stage StageContext) string {
	return render(mainTemplates, contentDomain, stage)
}

// ComposeStage renders the prompt for one step's stage image.
func ComposeStage(contentDomain domain.ContentDomain, stage StageContext) string {
	return render(stageTemplates, contentDomain, stage)
}

func render(
	templates map[domain.ContentDomain]*template.Template,
	contentDomain domain.ContentDomain,
	stage StageContext,
) string {
	if stage.StyleHint == "" {
		if hint, ok := defaultStyleHints[contentDomain]; ok {
			stage.StyleHint = hint
		} else {
			stage.StyleHint = fallbackStyleHint
		}
	}

	tmpl, ok := templates[contentDomain]
	if !ok {
		// Unknown domains get a minimal but still usable prompt rather than
		// an error: composition sits on the hot path of batch assembly and
		// must not fail it.
		return fmt.Sprintf("Photograph of %s: %s", stage.ArtifactTitle, stage.Description)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, stage); err != nil {
		return fmt.Sprintf("Photograph of %s: %s", stage.ArtifactTitle, stage.Description)
	}

	return buf.String()
}

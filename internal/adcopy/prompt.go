package adcopy

import (
	"strings"

	"adforge/internal/campaign"
	"adforge/internal/platform"
)

const promptClosing = "Return a compelling headline, a two-sentence body, and a CTA that matches the goal."

// PromptTemplate lists every non-empty brief field under a fixed label.
// Platform label and aspect ratio are always present.
func PromptTemplate(brief campaign.Brief) string {
	details := platform.ForVariant(brief.Variant).Lookup(brief.Platform)

	var b strings.Builder
	if brief.IsPitch() {
		b.WriteString("Create a product pitch ad for " + firstNonEmpty(brief.Name(), "a product") + ".\n")
	} else {
		b.WriteString("Create polished brand-forward ad copy for " + firstNonEmpty(brief.Name(), "a brand") + ".\n")
	}

	writeLine(&b, "Product", brief.ProductName)
	writeLine(&b, "Product description", brief.ProductDescription)
	writeLine(&b, "Target audience", brief.TargetAudience)
	writeLine(&b, "Tone", brief.Tone)
	writeLine(&b, "Brand context", brief.BrandContext)
	writeLine(&b, "Campaign goal", brief.Goal)
	writeLine(&b, "Brand feel", brief.BrandFeel)
	writeLine(&b, "Brand mood", brief.BrandMood)
	writeLine(&b, "Headline direction", brief.Headline)
	writeLine(&b, "Brand colors (hex)", strings.Join(brief.Colors(), ", "))
	writeLine(&b, "Typography preference", brief.Font)
	writeLine(&b, "Visual style guidance", brief.VisualStyle)
	writeLine(&b, "Keywords to incorporate", strings.Join(brief.KeywordList(), ", "))
	writeLine(&b, "Preferred call-to-action", brief.CallToAction)
	writeLine(&b, "Primary platform", details.Label)
	writeLine(&b, "Recommended aspect ratio", details.AspectRatio)
	if brief.Logo != nil {
		writeLine(&b, "Logo asset available", brief.Logo.Name)
	}

	b.WriteString(promptClosing)
	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(label + ": " + value + "\n")
}

package webhook

import (
	"strings"
	"time"

	"adforge/internal/campaign"
	"adforge/internal/platform"
)

// Payload is the wire body sent to the automation endpoint. Field names
// are fixed by the receiving workflow; the logo binary is never included.
type Payload struct {
	BrandName           string         `json:"brandName"`
	BrandColors         []string       `json:"brandColors"`
	Font                string         `json:"font"`
	SocialPlatform      string         `json:"socialPlatform"`
	SocialPlatformLabel string         `json:"socialPlatformLabel"`
	Goal                string         `json:"goal"`
	Headline            string         `json:"headline"`
	BrandContext        string         `json:"brandContext"`
	BrandFeel           string         `json:"brandFeel"`
	BrandMood           string         `json:"brandMood"`
	VisualStyle         string         `json:"visualStyle"`
	Keywords            string         `json:"keywords"`
	AspectRatio         string         `json:"aspectRatio"`
	Logo                *campaign.Logo `json:"logo"`
	SubmittedAt         string         `json:"submittedAt"`
}

func BuildPayload(brief campaign.Brief, details platform.Details, now time.Time) Payload {
	colors := brief.Colors()
	if colors == nil {
		colors = []string{}
	}

	var logo *campaign.Logo
	if brief.Logo != nil {
		l := *brief.Logo
		logo = &l
	}

	brandContext := strings.TrimSpace(brief.BrandContext)
	if brandContext == "" {
		brandContext = strings.TrimSpace(brief.ProductDescription)
	}
	feel := strings.TrimSpace(brief.BrandFeel)
	if feel == "" {
		feel = strings.TrimSpace(brief.Tone)
	}

	return Payload{
		BrandName:           brief.Name(),
		BrandColors:         colors,
		Font:                strings.TrimSpace(brief.Font),
		SocialPlatform:      details.Key,
		SocialPlatformLabel: details.Label,
		Goal:                strings.TrimSpace(brief.Goal),
		Headline:            strings.TrimSpace(brief.Headline),
		BrandContext:        brandContext,
		BrandFeel:           feel,
		BrandMood:           strings.TrimSpace(brief.BrandMood),
		VisualStyle:         strings.TrimSpace(brief.VisualStyle),
		Keywords:            strings.Join(brief.KeywordList(), ", "),
		AspectRatio:         details.AspectRatio,
		Logo:                logo,
		SubmittedAt:         now.UTC().Format(time.RFC3339Nano),
	}
}

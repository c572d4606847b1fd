package adcopy

import (
	"strings"

	"adforge/internal/campaign"
)

const DefaultBrandColor = "#6C47FF"

type Tip struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type TipReport struct {
	Actionable []Tip    `json:"actionable"`
	QuickWins  []string `json:"quickWins"`
}

type tipRule struct {
	Tip
	missing func(campaign.Brief) bool
}

func blank(v string) bool { return strings.TrimSpace(v) == "" }

var tipRules = []tipRule{
	{
		Tip:     Tip{ID: "goal", Title: "Clarify the campaign goal", Detail: "Spell out the outcome you want - launch hype, sign-ups, sales - so copy leans into it."},
		missing: func(b campaign.Brief) bool { return blank(b.Goal) },
	},
	{
		Tip:     Tip{ID: "context", Title: "Share brand context", Detail: "A sentence about launches, partnerships, or seasonality keeps everyone aligned."},
		missing: func(b campaign.Brief) bool { return blank(b.BrandContext) },
	},
	{
		Tip:     Tip{ID: "feel", Title: "Name the brand feel", Detail: "A few texture words (e.g. polished, grounded) make creative intent obvious."},
		missing: func(b campaign.Brief) bool { return blank(b.BrandFeel) },
	},
	{
		Tip:     Tip{ID: "mood", Title: "Define the mood", Detail: "Emotional cues help writers match the energy. Try 2-3 adjectives."},
		missing: func(b campaign.Brief) bool { return blank(b.BrandMood) },
	},
	{
		Tip:     Tip{ID: "palette", Title: "Expand the palette", Detail: "Add a secondary hex code so designers have flexibility for highlights and accents."},
		missing: func(b campaign.Brief) bool {
			for _, c := range b.Colors() {
				if c != DefaultBrandColor {
					return false
				}
			}
			return true
		},
	},
	{
		Tip:     Tip{ID: "visualStyle", Title: "Describe the visual style", Detail: "Mention mood, lighting, or layout cues to steer imagery and art direction."},
		missing: func(b campaign.Brief) bool { return blank(b.VisualStyle) },
	},
	{
		Tip:     Tip{ID: "keywords", Title: "Drop in brand keywords", Detail: "Short comma-separated phrases keep messaging on-brand during generation."},
		missing: func(b campaign.Brief) bool { return len(b.KeywordList()) == 0 },
	},
	{
		Tip:     Tip{ID: "logo", Title: "Attach a logo", Detail: "Remind future you to keep the latest logo handy when sharing the brief."},
		missing: func(b campaign.Brief) bool { return b.Logo == nil },
	},
}

// Tips reports which parts of a brief are still thin.
func Tips(brief campaign.Brief) TipReport {
	report := TipReport{Actionable: []Tip{}, QuickWins: []string{}}
	for _, rule := range tipRules {
		if rule.missing(brief) {
			report.Actionable = append(report.Actionable, rule.Tip)
		}
	}

	add := func(cond bool, text string) {
		if cond {
			report.QuickWins = append(report.QuickWins, text)
		}
	}
	add(blank(brief.Name()), "Add the brand name for personalized headlines.")
	add(blank(brief.BrandContext), "Set the brand context so the narrative is grounded.")
	add(blank(brief.Headline), "Seed a headline idea to anchor the tone of the copy.")
	add(blank(brief.Font), "Note headline and body fonts so typographers stay aligned.")
	add(blank(brief.BrandFeel), "Capture the brand feel with 2-3 descriptive words.")
	add(blank(brief.BrandMood), "Add the mood so imagery and copy land with the right emotion.")
	add(len(brief.Colors()) == 1, "Consider adding one more accent color for versatility.")

	return report
}

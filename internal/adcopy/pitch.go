package adcopy

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"adforge/internal/campaign"
	"adforge/internal/platform"
)

const (
	fallbackProduct = "Your product"
	maxFeatures     = 5
)

var Tones = []string{"friendly", "bold", "luxury", "playful", "informative"}

var toneDescriptors = map[string][]string{
	"friendly":    {"warm", "approachable", "upbeat"},
	"bold":        {"fearless", "high-energy", "unapologetic"},
	"luxury":      {"refined", "elevated", "exclusive"},
	"playful":     {"cheeky", "lighthearted", "fun-loving"},
	"informative": {"clear", "practical", "insightful"},
}

var toneHeadlines = map[string]string{
	"friendly":    "Say hello to %s",
	"bold":        "%s changes the game",
	"luxury":      "Discover the art of %s",
	"playful":     "Meet %s, your new favorite thing",
	"informative": "Everything you need to know about %s",
}

var transitions = []string{
	"Here's why it stands out.",
	"Here's what makes it different.",
	"The highlights speak for themselves.",
	"Built to deliver from day one.",
}

var benefitPrefixes = []string{"Enjoy", "Unlock", "Count on", "Get"}

func normalizeTone(tone string) string {
	return strings.ToLower(strings.TrimSpace(tone))
}

func (s *Synthesizer) generatePitch(brief campaign.Brief) campaign.Ad {
	details := platform.Pitch().Lookup(brief.Platform)

	name := firstNonEmpty(brief.ProductName, brief.BrandName, fallbackProduct)
	tone := normalizeTone(brief.Tone)
	goal := strings.TrimSpace(brief.Goal)
	audience := strings.TrimSpace(brief.TargetAudience)

	features := brief.KeywordList()
	if len(features) > maxFeatures {
		features = features[:maxFeatures]
	}

	headline := strings.TrimSpace(brief.Headline)
	switch {
	case headline != "":
	case goal != "":
		headline = titleCase(goal) + " with " + name
	default:
		pattern, ok := toneHeadlines[tone]
		if !ok {
			pattern = "Make %s impossible to ignore"
		}
		headline = fmt.Sprintf(pattern, name)
	}

	fragments := make([]string, 0, 4+len(features))
	description := firstNonEmpty(brief.ProductDescription, brief.BrandContext)
	if description == "" {
		if goal != "" {
			description = name + " is here to help you " + lowerFirst(goal)
		} else {
			description = name + " is ready for its moment"
		}
	}
	fragments = append(fragments, description)
	if len(features) > 0 {
		fragments = append(fragments, pickOne(s.picker, transitions, transitions[0]))
		for _, f := range features {
			fragments = append(fragments, pickOne(s.picker, benefitPrefixes, benefitPrefixes[0])+" "+f)
		}
	}
	if audience != "" {
		fragments = append(fragments, "Built for "+audience)
	}
	fragments = append(fragments, details.CreativeNote)

	descriptor := "standout"
	if pool, ok := toneDescriptors[tone]; ok {
		descriptor = pickOne(s.picker, pool, pool[0])
	}
	spotlight := name + " in action"
	if len(features) > 0 {
		spotlight = strings.Join(features, " | ")
	}
	variants := []string{
		details.Hook + " " + headline,
		capitalize(descriptor) + " angle: " + name + " for " + firstNonEmpty(audience, "everyone who needs it"),
		"Feature spotlight: " + spotlight,
		details.Label + " focus: " + details.CreativeNote,
	}

	cta := s.pitchCTA(brief.CallToAction, tone, details.DefaultCTA)
	return s.newAd(platform.VariantPitch, details, headline, joinSentences(fragments...), cta, variants)
}

func lowerFirst(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if size == 0 {
		return text
	}
	return string(unicode.ToLower(r)) + text[size:]
}

package adcopy

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"adforge/internal/campaign"
	"adforge/internal/platform"
)

const fallbackBrand = "Your brand"

type Options struct {
	Picker Picker
	Now    func() time.Time
}

// Synthesizer turns a Brief into ad copy. It never fails: missing brief
// fields fall back to generic phrasing.
type Synthesizer struct {
	picker Picker
	now    func() time.Time
}

func New(opts Options) *Synthesizer {
	picker := opts.Picker
	if picker == nil {
		picker = RandomPicker()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{picker: picker, now: now}
}

// Generate returns the copy part of an Ad; image and webhook fields are
// left zero.
func (s *Synthesizer) Generate(brief campaign.Brief) campaign.Ad {
	if brief.IsPitch() {
		return s.generatePitch(brief)
	}
	return s.generateBrand(brief)
}

func (s *Synthesizer) generateBrand(brief campaign.Brief) campaign.Ad {
	details := platform.Brand().Lookup(brief.Platform)

	brandLabel := firstNonEmpty(brief.BrandName, fallbackBrand)
	goal := strings.TrimSpace(brief.Goal)
	keywords := brief.KeywordList()

	headline := strings.TrimSpace(brief.Headline)
	switch {
	case headline != "":
	case goal != "":
		headline = titleCase(goal) + " with " + brandLabel
	default:
		headline = "Make " + brandLabel + " impossible to ignore"
	}

	intro := strings.TrimSpace(brief.BrandContext)
	if intro == "" {
		if goal != "" {
			intro = brandLabel + " is shaping this campaign to " + goal
		} else {
			intro = brandLabel + " is building momentum for an upcoming moment"
		}
	}

	var paletteLine, fontLine, keywordsLine string
	if palette := describePalette(brief.Colors()); palette != "" {
		paletteLine = "Palette cues: " + palette
	}
	if font := strings.TrimSpace(brief.Font); font != "" {
		fontLine = "Typography: " + font
	}
	if len(keywords) > 0 {
		keywordsLine = "Keywords to weave in: " + strings.Join(keywords, ", ")
	}

	body := joinSentences(
		intro,
		details.CreativeNote,
		paletteLine,
		"Brand feel: "+firstNonEmpty(brief.BrandFeel, "Refined and confident with premium touches"),
		"Brand mood: "+firstNonEmpty(brief.BrandMood, "Optimistic, energetic, and modern"),
		"Visual style: "+firstNonEmpty(brief.VisualStyle, "High-contrast imagery with tactile details"),
		fontLine,
		keywordsLine,
		"Recommended aspect ratio: "+details.AspectRatio,
	)

	rotation := "premium | confident | modern"
	if len(keywords) > 0 {
		rotation = strings.Join(keywords, " | ")
	}
	variants := []string{
		details.Label + " focus: " + details.CreativeNote,
		"Brand feel -> " + firstNonEmpty(brief.BrandFeel, "Refined & confident"),
		"Moodboard -> " + firstNonEmpty(brief.BrandMood, "Optimistic / Energetic / Modern"),
		"Keywords in rotation: " + rotation,
	}

	return s.newAd(platform.VariantBrand, details, headline, body, s.brandCTA(brief.CallToAction, brief.Goal), variants)
}

func (s *Synthesizer) newAd(variant string, details platform.Details, headline, body, cta string, variants []string) campaign.Ad {
	now := s.now().UTC()
	return campaign.Ad{
		ID:            newID(now),
		CreatedAt:     now,
		Variant:       variant,
		Platform:      details.Key,
		PlatformLabel: details.Label,
		AspectRatio:   details.AspectRatio,
		Headline:      headline,
		Body:          body,
		CallToAction:  cta,
		Variants:      variants,
	}
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID is a base36 millisecond timestamp plus six random base36
// characters. The suffix draws from the runtime source, not the copy
// Picker, so seeded output still gets distinct ids.
func newID(now time.Time) string {
	var suffix [6]byte
	for i := range suffix {
		suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + string(suffix[:])
}

package campaign

import (
	"strings"
)

var fieldAliases = map[string]string{
	"variant":            "variant",
	"mode":               "variant",
	"brand":              "brandName",
	"brandname":          "brandName",
	"name":               "brandName",
	"product":            "productName",
	"productname":        "productName",
	"description":        "productDescription",
	"productdescription": "productDescription",
	"context":            "brandContext",
	"brandcontext":       "brandContext",
	"audience":           "targetAudience",
	"targetaudience":     "targetAudience",
	"goal":               "goal",
	"primarygoal":        "goal",
	"headline":           "headline",
	"tone":               "tone",
	"feel":               "brandFeel",
	"brandfeel":          "brandFeel",
	"mood":               "brandMood",
	"brandmood":          "brandMood",
	"style":              "visualStyle",
	"visualstyle":        "visualStyle",
	"font":               "font",
	"typography":         "font",
	"keywords":           "keywords",
	"features":           "keywords",
	"colors":             "brandColors",
	"colours":            "brandColors",
	"brandcolors":        "brandColors",
	"palette":            "brandColors",
	"platform":           "socialPlatform",
	"socialplatform":     "socialPlatform",
	"cta":                "callToAction",
	"calltoaction":       "callToAction",
}

// ParseBrief reads one "key: value" (or "key=value") pair per line on top
// of base. Lines with unknown keys are returned untouched.
func ParseBrief(raw string, base Brief) (Brief, []string) {
	brief := base
	var unknown []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := splitPair(line)
		if !ok || !brief.Set(key, value) {
			unknown = append(unknown, line)
		}
	}

	return brief, unknown
}

// Set assigns a single field by any of its accepted names. It reports
// false when the key is not recognised.
func (b *Brief) Set(key, value string) bool {
	field, ok := fieldAliases[normalizeField(key)]
	if !ok {
		return false
	}
	value = strings.TrimSpace(value)

	switch field {
	case "variant":
		b.Variant = strings.ToLower(value)
	case "brandName":
		b.BrandName = value
	case "productName":
		b.ProductName = value
	case "productDescription":
		b.ProductDescription = value
	case "brandContext":
		b.BrandContext = value
	case "targetAudience":
		b.TargetAudience = value
	case "goal":
		b.Goal = value
	case "headline":
		b.Headline = value
	case "tone":
		b.Tone = strings.ToLower(value)
	case "brandFeel":
		b.BrandFeel = value
	case "brandMood":
		b.BrandMood = value
	case "visualStyle":
		b.VisualStyle = value
	case "font":
		b.Font = value
	case "keywords":
		b.Keywords = value
	case "brandColors":
		b.BrandColors = splitColors(value)
	case "socialPlatform":
		b.Platform = strings.ToLower(value)
	case "callToAction":
		b.CallToAction = value
	}
	return true
}

func splitPair(line string) (string, string, bool) {
	idx := strings.IndexAny(line, ":=")
	if idx <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func splitColors(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func normalizeField(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	return key
}

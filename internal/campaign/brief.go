package campaign

import (
	"encoding/json"
	"regexp"
	"strings"
)

const MaxColors = 5

type Logo struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"`
}

// Brief is the campaign input collected before a generation. Brand and
// product-pitch fields share one structure; Variant selects which copy
// style is produced from it.
type Brief struct {
	Variant string `json:"variant,omitempty"`

	BrandName          string `json:"brandName,omitempty"`
	ProductName        string `json:"productName,omitempty"`
	ProductDescription string `json:"productDescription,omitempty"`
	BrandContext       string `json:"brandContext,omitempty"`
	TargetAudience     string `json:"targetAudience,omitempty"`
	Goal               string `json:"goal,omitempty"`
	Headline           string `json:"headline,omitempty"`

	Tone        string   `json:"tone,omitempty"`
	BrandFeel   string   `json:"brandFeel,omitempty"`
	BrandMood   string   `json:"brandMood,omitempty"`
	VisualStyle string   `json:"visualStyle,omitempty"`
	Font        string   `json:"font,omitempty"`
	Keywords    string   `json:"keywords,omitempty"`
	BrandColors []string `json:"brandColors,omitempty"`

	Platform     string `json:"socialPlatform,omitempty"`
	CallToAction string `json:"callToAction,omitempty"`
	Logo         *Logo  `json:"logo,omitempty"`
}

// UnmarshalJSON also accepts the product form's field names.
func (b *Brief) UnmarshalJSON(data []byte) error {
	type plain Brief
	var aux struct {
		plain
		PlatformAlias string `json:"platform"`
		GoalAlias     string `json:"primaryGoal"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = Brief(aux.plain)
	if b.Platform == "" {
		b.Platform = aux.PlatformAlias
	}
	if b.Goal == "" {
		b.Goal = aux.GoalAlias
	}
	return nil
}

func (b Brief) IsPitch() bool {
	return strings.EqualFold(strings.TrimSpace(b.Variant), "pitch")
}

// Name is the display name used in copy: brand, then product.
func (b Brief) Name() string {
	if v := strings.TrimSpace(b.BrandName); v != "" {
		return v
	}
	return strings.TrimSpace(b.ProductName)
}

func (b Brief) KeywordList() []string {
	return ParseKeywords(b.Keywords)
}

func (b Brief) Colors() []string {
	return NormalizeColors(b.BrandColors)
}

func ParseKeywords(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

var hexColorRe = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func IsHexColor(value string) bool {
	return hexColorRe.MatchString(strings.ToUpper(strings.TrimSpace(value)))
}

// NormalizeColors trims and upper-cases each entry and silently drops
// anything that is not a 6-digit hex colour.
func NormalizeColors(colors []string) []string {
	var out []string
	for _, c := range colors {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !hexColorRe.MatchString(c) {
			continue
		}
		out = append(out, c)
		if len(out) == MaxColors {
			break
		}
	}
	return out
}

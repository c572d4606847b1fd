package adcopy

import "strings"

type ctaRule struct {
	matches []string
	options []string
}

var ctaLibrary = []ctaRule{
	{
		matches: []string{"launch", "introduce", "debut", "new", "drop"},
		options: []string{"Explore the launch", "See what's new", "Preview the drop"},
	},
	{
		matches: []string{"shop", "buy", "purchase", "retail", "store", "collection"},
		options: []string{"Shop the collection", "Add to cart", "Discover the lineup"},
	},
	{
		matches: []string{"sign", "register", "join", "subscribe", "waitlist"},
		options: []string{"Join the waitlist", "Sign up today", "Subscribe for updates"},
	},
	{
		matches: []string{"learn", "guide", "education", "webinar", "class"},
		options: []string{"Reserve your spot", "Get the guide", "Save your seat"},
	},
	{
		matches: []string{"download", "app", "tool", "platform"},
		options: []string{"Download now", "Try the platform", "Start your free demo"},
	},
}

var defaultCTAs = []string{"Discover more", "Learn more", "See the story", "Explore now"}

// triggeredCTAs returns the phrase pool of the first rule whose trigger
// appears in goal, or the generic pool.
func triggeredCTAs(goal string) []string {
	normalized := strings.ToLower(goal)
	if strings.TrimSpace(normalized) == "" {
		return defaultCTAs
	}
	for _, rule := range ctaLibrary {
		for _, kw := range rule.matches {
			if strings.Contains(normalized, kw) {
				return rule.options
			}
		}
	}
	return defaultCTAs
}

func (s *Synthesizer) brandCTA(explicit, goal string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return pickOne(s.picker, triggeredCTAs(goal), defaultCTAs[0])
}

var toneCTAs = map[string][]string{
	"friendly":    {"Come say hi", "Give it a try", "Join the community"},
	"bold":        {"Claim yours now", "Make the move", "Get it today"},
	"luxury":      {"Reserve your experience", "Discover the collection", "Request a private preview"},
	"playful":     {"Jump in", "Take it for a spin", "Let's play"},
	"informative": {"See how it works", "Read the details", "Compare the features"},
}

func (s *Synthesizer) pitchCTA(explicit, tone, platformDefault string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if pool, ok := toneCTAs[normalizeTone(tone)]; ok {
		return pickOne(s.picker, pool, platformDefault)
	}
	if platformDefault != "" {
		return platformDefault
	}
	return defaultCTAs[0]
}

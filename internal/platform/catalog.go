package platform

const (
	VariantBrand = "brand"
	VariantPitch = "pitch"
)

var brand = newRegistry("instagram",
	Details{
		Key:          "instagram",
		Label:        "Instagram",
		AspectRatio:  "1080x1080",
		CreativeNote: "Square feed placements love bold focal points and layered typography.",
		PaletteClass: "palette-instagram",
	},
	Details{
		Key:          "reels",
		Label:        "Reels / Stories",
		AspectRatio:  "1080x1920",
		CreativeNote: "Vertical storytelling works best with motion-first framing and captions.",
		PaletteClass: "palette-reels",
	},
	Details{
		Key:          "youtube",
		Label:        "YouTube",
		AspectRatio:  "1920x1080 (16:9)",
		CreativeNote: "Wide cinematic compositions should highlight a strong central subject.",
		PaletteClass: "palette-youtube",
	},
	Details{
		Key:          "facebook",
		Label:        "Facebook",
		AspectRatio:  "1200x630",
		CreativeNote: "Feed visuals benefit from conversational copy and clear focal elements.",
		PaletteClass: "palette-facebook",
	},
	Details{
		Key:          "linkedin",
		Label:        "LinkedIn",
		AspectRatio:  "1200x627",
		CreativeNote: "Lead with credibility and clean layouts to resonate with professionals.",
		PaletteClass: "palette-linkedin",
	},
)

var pitch = newRegistry("instagram",
	Details{
		Key:          "facebook",
		Label:        "Facebook",
		AspectRatio:  "1200x630",
		CreativeNote: "Keep it conversational so the post reads like a friend's recommendation.",
		Hook:         "Scroll-stopper:",
		DefaultCTA:   "Learn more",
	},
	Details{
		Key:          "instagram",
		Label:        "Instagram",
		AspectRatio:  "1080x1080",
		CreativeNote: "Pair the caption with a bold visual and a handful of focused hashtags.",
		Hook:         "Double-tap worthy:",
		DefaultCTA:   "Tap to shop",
	},
	Details{
		Key:          "tiktok",
		Label:        "TikTok",
		AspectRatio:  "1080x1920",
		CreativeNote: "Open with motion in the first two seconds and keep captions punchy.",
		Hook:         "POV:",
		DefaultCTA:   "Watch now",
	},
	Details{
		Key:          "linkedin",
		Label:        "LinkedIn",
		AspectRatio:  "1200x627",
		CreativeNote: "Lead with outcomes and proof points that matter to decision makers.",
		Hook:         "Industry insight:",
		DefaultCTA:   "Request a demo",
	},
	Details{
		Key:          "email",
		Label:        "Email Campaign",
		AspectRatio:  "600x300",
		CreativeNote: "Front-load the value in the first line so it survives the preview pane.",
		Hook:         "Subject line idea:",
		DefaultCTA:   "Claim your offer",
	},
)

func Brand() *Registry { return brand }

func Pitch() *Registry { return pitch }

// ForVariant returns the pitch registry for "pitch" and the brand registry
// for anything else.
func ForVariant(variant string) *Registry {
	if normalizeKey(variant) == VariantPitch {
		return pitch
	}
	return brand
}

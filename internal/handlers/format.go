package handlers

import (
	"fmt"
	"strings"

	"adforge/internal/adcopy"
	"adforge/internal/campaign"
	"adforge/internal/platform"
)

const helpText = "📣 AdForge\n\n" +
	"Describe your campaign and I will draft platform-ready ad copy.\n\n" +
	"Commands:\n" +
	"/brief - Replace the brief (one \"field: value\" per line)\n" +
	"/set <field> <value> - Change one field\n" +
	"/draft - Show the current brief\n" +
	"/platforms - List platforms for the current variant\n" +
	"/tips - Suggestions to strengthen the brief\n" +
	"/prompt - Creative prompt for an image model\n" +
	"/generate - Generate an ad\n" +
	"/history - Last 10 ads\n" +
	"/show [id] - Open an ad and make it current\n" +
	"/export [id] - Download an ad as text\n" +
	"/save [id] - Save the creative to the gallery\n" +
	"/gallery - Saved creatives\n" +
	"/clear - Forget history and brief\n\n" +
	"Fields: variant (brand|pitch), brand, product, description, context, audience, goal, headline, " +
	"tone, feel, mood, style, font, keywords, colors, platform, cta.\n" +
	"Send a photo or image file to attach a logo."

const briefUsage = "❌ Send the brief after the command, for example:\n\n" +
	"/brief\n" +
	"brand: Acme Coffee\n" +
	"audience: remote workers\n" +
	"goal: drive online orders\n" +
	"colors: #6C47FF, #FFB800\n" +
	"platform: instagram"

func draftText(b campaign.Brief) string {
	details := platform.ForVariant(b.Variant).Lookup(b.Platform)

	variant := platform.VariantBrand
	if b.IsPitch() {
		variant = platform.VariantPitch
	}

	rows := [][2]string{
		{"Variant", variant},
		{"Brand", b.BrandName},
		{"Product", b.ProductName},
		{"Description", b.ProductDescription},
		{"Context", b.BrandContext},
		{"Audience", b.TargetAudience},
		{"Goal", b.Goal},
		{"Headline", b.Headline},
		{"Tone", b.Tone},
		{"Feel", b.BrandFeel},
		{"Mood", b.BrandMood},
		{"Style", b.VisualStyle},
		{"Font", b.Font},
		{"Keywords", strings.Join(b.KeywordList(), ", ")},
		{"Colors", strings.Join(b.Colors(), ", ")},
		{"Platform", details.Label + " (" + details.AspectRatio + ")"},
		{"CTA", b.CallToAction},
	}
	if b.Logo != nil {
		rows = append(rows, [2]string{"Logo", b.Logo.Name})
	}

	var sb strings.Builder
	sb.WriteString("📝 Current brief")
	for _, row := range rows {
		if strings.TrimSpace(row[1]) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n%s: %s", row[0], row[1])
	}
	return sb.String()
}

func ignoredNote(unknown []string) string {
	if len(unknown) == 0 {
		return ""
	}
	return "\n\n⚠️ Ignored:\n" + strings.Join(unknown, "\n")
}

func tipsText(report adcopy.TipReport) string {
	var sb strings.Builder
	sb.WriteString("💡 Tips")
	if len(report.Actionable) == 0 {
		sb.WriteString("\nYour brief covers the essentials.")
	}
	for _, tip := range report.Actionable {
		fmt.Fprintf(&sb, "\n• %s: %s", tip.Title, tip.Detail)
	}
	if len(report.QuickWins) > 0 {
		sb.WriteString("\n\nQuick wins:")
		for _, w := range report.QuickWins {
			sb.WriteString("\n• " + w)
		}
	}
	return sb.String()
}

func platformsText(variant string) string {
	reg := platform.ForVariant(variant)
	def := reg.Default().Key

	var sb strings.Builder
	sb.WriteString("📐 Platforms")
	for _, opt := range reg.Options() {
		fmt.Fprintf(&sb, "\n• %s: %s (%s)", opt.Key, opt.Name, opt.AspectRatio)
		if opt.Key == def {
			sb.WriteString(" default")
		}
	}
	sb.WriteString("\n\nUse /set platform <key>.")
	return sb.String()
}

func adText(ad campaign.Ad) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n%s\n\n👉 %s", ad.Headline, ad.Body, ad.CallToAction)
	if len(ad.Variants) > 0 {
		sb.WriteString("\n\nVariants:")
		for _, v := range ad.Variants {
			sb.WriteString("\n• " + v)
		}
	}
	fmt.Fprintf(&sb, "\n\n%s · %s · id %s", ad.PlatformLabel, ad.AspectRatio, ad.ID)
	if ad.WebhookDelivered {
		sb.WriteString("\nWebhook: delivered")
	}
	if ad.ImageError != "" {
		sb.WriteString("\n⚠️ Image: " + ad.ImageError)
	}
	return sb.String()
}

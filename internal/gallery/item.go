package gallery

import (
	"strings"

	"adforge/internal/campaign"
)

// FromAd maps a generated ad onto a gallery item owned by userID. An
// embedded image is uploaded as-is; a remote one is mirrored.
func FromAd(userID, title string, ad campaign.Ad) Item {
	item := Item{
		UserID: userID,
		Title:  strings.TrimSpace(title),
		Prompt: ad.ImagePrompt,
		Metadata: map[string]any{
			"adId":        ad.ID,
			"platform":    ad.Platform,
			"aspectRatio": ad.AspectRatio,
			"headline":    ad.Headline,
		},
	}
	if item.Title == "" {
		item.Title = ad.Headline
	}
	if strings.HasPrefix(ad.ImageSrc, "data:") {
		item.ImageDataURL = ad.ImageSrc
	}
	item.ExternalURL = ad.ImageExternalURL
	if item.ExternalURL == "" && item.ImageDataURL == "" {
		item.ExternalURL = ad.ImageSrc
	}
	return item
}

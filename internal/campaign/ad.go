package campaign

import (
	"strings"
	"time"
)

// Ad is one generation result. It is built once by the orchestrator and
// treated as read-only afterwards.
type Ad struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Variant       string    `json:"variant"`
	Platform      string    `json:"platform"`
	PlatformLabel string    `json:"platformLabel"`
	AspectRatio   string    `json:"aspectRatio"`
	Headline      string    `json:"headline"`
	Body          string    `json:"body"`
	CallToAction  string    `json:"callToAction"`
	Variants      []string  `json:"variants"`

	ImageSrc         string `json:"imageSrc,omitempty"`
	ImageExternalURL string `json:"imageExternalUrl,omitempty"`
	ImagePrompt      string `json:"imagePrompt,omitempty"`
	ImageFileName    string `json:"imageFileName,omitempty"`
	ImageAlt         string `json:"imageAlt,omitempty"`
	ImageError       string `json:"imageError,omitempty"`

	WebhookDelivered bool `json:"webhookDelivered"`
	WebhookResponse  any  `json:"webhookResponse"`
}

// ExportText is the clipboard form: headline, body and CTA separated by
// blank lines.
func (a Ad) ExportText() string {
	return strings.Join([]string{a.Headline, a.Body, a.CallToAction}, "\n\n")
}

func (a Ad) HasImage() bool {
	return a.ImageSrc != ""
}

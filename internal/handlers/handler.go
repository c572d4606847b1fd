package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"adforge/internal/adcopy"
	"adforge/internal/campaign"
	"adforge/internal/gallery"
	"adforge/internal/session"
	"adforge/internal/studio"
	"adforge/internal/telegram"
)

const galleryListLimit = 5

type Messenger interface {
	SendText(chatID int64, text string) error
	SendPhoto(chatID int64, src, caption string) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	SendTyping(chatID int64)
}

type Studio interface {
	Generate(ctx context.Context, sessionID string, brief campaign.Brief) (campaign.Ad, error)
	Select(ctx context.Context, sessionID, id string) (campaign.Ad, error)
	Current(ctx context.Context, sessionID string) (campaign.Ad, error)
	History(ctx context.Context, sessionID string) ([]campaign.Ad, error)
	Find(ctx context.Context, sessionID, id string) (campaign.Ad, error)
	Clear(ctx context.Context, sessionID string) error
}

type Gallery interface {
	Save(ctx context.Context, item gallery.Item) (gallery.Stored, error)
	Recent(ctx context.Context, userID string, limit int) ([]gallery.Record, error)
}

type Options struct {
	Messenger Messenger
	Studio    Studio
	Gallery   Gallery
	Drafts    *DraftStore
	Logger    *slog.Logger
}

type Handler struct {
	tg      Messenger
	studio  Studio
	gallery Gallery
	drafts  *DraftStore
	logger  *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	drafts := opts.Drafts
	if drafts == nil {
		drafts = NewDraftStore()
	}

	return &Handler{
		tg:      opts.Messenger,
		studio:  opts.Studio,
		gallery: opts.Gallery,
		drafts:  drafts,
		logger:  logger,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, msg)
	}

	if logo, ok := logoFromMessage(msg); ok {
		return h.handleLogo(chatID, logo)
	}

	if msg.Text != "" {
		return h.handleText(chatID, msg.Text)
	}

	return nil
}

func sessionID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "brief":
		if args == "" {
			return h.tg.SendText(chatID, briefUsage)
		}
		var unknown []string
		brief := h.drafts.Update(chatID, func(b *campaign.Brief) {
			base := campaign.Brief{Variant: b.Variant, Logo: b.Logo}
			*b, unknown = campaign.ParseBrief(args, base)
		})
		return h.tg.SendText(chatID, "✅ Brief replaced.\n\n"+draftText(brief)+ignoredNote(unknown))
	case "set":
		key, value, _ := strings.Cut(args, " ")
		if key == "" {
			return h.tg.SendText(chatID, "❌ Usage: /set <field> <value>\nExample: /set tone playful")
		}
		known := false
		brief := h.drafts.Update(chatID, func(b *campaign.Brief) {
			known = b.Set(key, value)
		})
		if !known {
			return h.tg.SendText(chatID, fmt.Sprintf("❌ Unknown field %q. /help lists the fields.", key))
		}
		return h.tg.SendText(chatID, "✅ Saved.\n\n"+draftText(brief))
	case "draft":
		return h.tg.SendText(chatID, draftText(h.drafts.Get(chatID)))
	case "prompt":
		return h.tg.SendText(chatID, adcopy.PromptTemplate(h.drafts.Get(chatID)))
	case "tips":
		return h.tg.SendText(chatID, tipsText(adcopy.Tips(h.drafts.Get(chatID))))
	case "platforms":
		return h.tg.SendText(chatID, platformsText(h.drafts.Get(chatID).Variant))
	case "generate":
		return h.generate(ctx, chatID)
	case "history":
		return h.history(ctx, chatID)
	case "show":
		return h.show(ctx, chatID, args)
	case "export":
		return h.export(ctx, chatID, args)
	case "save":
		return h.save(ctx, chatID, args)
	case "gallery":
		return h.listGallery(ctx, chatID)
	case "clear":
		if err := h.studio.Clear(ctx, sessionID(chatID)); err != nil {
			h.logger.Error("clear history failed", "chat_id", chatID, "err", err)
			return h.tg.SendText(chatID, "❌ Could not clear the history. Please try again.")
		}
		h.drafts.Reset(chatID)
		return h.tg.SendText(chatID, "✅ History and draft cleared!")
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

// handleText treats free text as extra brief lines merged onto the draft.
func (h *Handler) handleText(chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var unknown []string
	before := h.drafts.Get(chatID)
	brief := h.drafts.Update(chatID, func(b *campaign.Brief) {
		*b, unknown = campaign.ParseBrief(text, *b)
	})
	if len(unknown) == countLines(text) {
		h.drafts.Update(chatID, func(b *campaign.Brief) { *b = before })
		return h.tg.SendText(chatID, "🤔 Send brief lines like \"brand: Acme\" or use /help.")
	}
	return h.tg.SendText(chatID, "✅ Brief updated.\n\n"+draftText(brief)+ignoredNote(unknown))
}

func (h *Handler) handleLogo(chatID int64, logo campaign.Logo) error {
	h.drafts.Update(chatID, func(b *campaign.Brief) { b.Logo = &logo })
	return h.tg.SendText(chatID, fmt.Sprintf("✅ Logo noted: %s (%s, %d bytes)", logo.Name, logo.Type, logo.Size))
}

func (h *Handler) generate(ctx context.Context, chatID int64) error {
	h.tg.SendTyping(chatID)

	ad, err := h.studio.Generate(ctx, sessionID(chatID), h.drafts.Get(chatID))
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return h.tg.SendText(chatID, "⏳ Still working on your previous ad, hang on.")
		}
		h.logger.Error("generation failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Generation failed. Please try again.")
	}

	return h.sendAd(chatID, ad)
}

func (h *Handler) sendAd(chatID int64, ad campaign.Ad) error {
	if err := h.tg.SendText(chatID, adText(ad)); err != nil {
		return err
	}
	if !ad.HasImage() {
		return nil
	}
	if err := h.tg.SendPhoto(chatID, ad.ImageSrc, ad.ImageAlt); err != nil {
		h.logger.Warn("send creative failed", "chat_id", chatID, "ad_id", ad.ID, "err", err)
		if ad.ImageExternalURL != "" {
			return h.tg.SendText(chatID, "🖼 Creative: "+ad.ImageExternalURL)
		}
		return h.tg.SendText(chatID, "⚠️ The creative could not be attached.")
	}
	return nil
}

func (h *Handler) history(ctx context.Context, chatID int64) error {
	sid := sessionID(chatID)
	ads, err := h.studio.History(ctx, sid)
	if err != nil {
		h.logger.Error("load history failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not load the history.")
	}
	if len(ads) == 0 {
		return h.tg.SendText(chatID, "No ads yet. Send /generate.")
	}

	current, _ := h.studio.Current(ctx, sid)

	var b strings.Builder
	b.WriteString("🗂 Recent ads\n")
	for i, ad := range ads {
		marker := " "
		if ad.ID == current.ID {
			marker = "▶"
		}
		fmt.Fprintf(&b, "\n%s %d. %s (%s)\n   id %s", marker, i+1, ad.Headline, ad.PlatformLabel, ad.ID)
	}
	b.WriteString("\n\n/show <id> opens one, /export <id> downloads it.")
	return h.tg.SendText(chatID, b.String())
}

func (h *Handler) show(ctx context.Context, chatID int64, id string) error {
	sid := sessionID(chatID)
	var ad campaign.Ad
	var err error
	if id == "" {
		ad, err = h.studio.Current(ctx, sid)
	} else {
		ad, err = h.studio.Select(ctx, sid, id)
	}
	if err != nil {
		return h.lookupFailed(chatID, id, err)
	}
	return h.sendAd(chatID, ad)
}

func (h *Handler) export(ctx context.Context, chatID int64, id string) error {
	ad, err := h.lookup(ctx, chatID, id)
	if err != nil {
		return h.lookupFailed(chatID, id, err)
	}

	text := studio.Export(ad)
	if err := h.tg.SendDocument(chatID, "ad-"+ad.ID+".txt", []byte(text), ad.Headline); err != nil {
		h.logger.Warn("send export document failed", "chat_id", chatID, "ad_id", ad.ID, "err", err)
		return h.tg.SendText(chatID, text)
	}
	return nil
}

func (h *Handler) save(ctx context.Context, chatID int64, id string) error {
	if h.gallery == nil {
		return h.tg.SendText(chatID, "❌ The gallery is not configured.")
	}

	ad, err := h.lookup(ctx, chatID, id)
	if err != nil {
		return h.lookupFailed(chatID, id, err)
	}

	stored, err := h.gallery.Save(ctx, gallery.FromAd(sessionID(chatID), "", ad))
	if err != nil {
		if errors.Is(err, gallery.ErrNoImage) {
			return h.tg.SendText(chatID, "❌ This ad has no creative to save.")
		}
		h.logger.Error("gallery save failed", "chat_id", chatID, "ad_id", ad.ID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not save to the gallery. Please try again.")
	}

	if strings.HasPrefix(stored.ImageURL, "data:") {
		return h.tg.SendText(chatID, "✅ Saved to the gallery.")
	}
	return h.tg.SendText(chatID, "✅ Saved to the gallery: "+stored.ImageURL)
}

func (h *Handler) listGallery(ctx context.Context, chatID int64) error {
	if h.gallery == nil {
		return h.tg.SendText(chatID, "❌ The gallery is not configured.")
	}

	recs, err := h.gallery.Recent(ctx, sessionID(chatID), galleryListLimit)
	if err != nil {
		h.logger.Error("gallery list failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not load the gallery.")
	}
	if len(recs) == 0 {
		return h.tg.SendText(chatID, "The gallery is empty. Use /save after a generation.")
	}

	var b strings.Builder
	b.WriteString("🖼 Saved creatives\n")
	for _, rec := range recs {
		fmt.Fprintf(&b, "\n• %s (%s)", rec.Title, rec.CreatedAt.Format("2006-01-02 15:04"))
		if !strings.HasPrefix(rec.ImageURL, "data:") {
			b.WriteString("\n  " + rec.ImageURL)
		}
	}
	return h.tg.SendText(chatID, b.String())
}

func (h *Handler) lookup(ctx context.Context, chatID int64, id string) (campaign.Ad, error) {
	if id == "" {
		return h.studio.Current(ctx, sessionID(chatID))
	}
	return h.studio.Find(ctx, sessionID(chatID), id)
}

func (h *Handler) lookupFailed(chatID int64, id string, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		if id == "" {
			return h.tg.SendText(chatID, "No ads yet. Send /generate.")
		}
		return h.tg.SendText(chatID, fmt.Sprintf("❌ No ad with id %q in your recent history.", id))
	}
	h.logger.Error("ad lookup failed", "chat_id", chatID, "id", id, "err", err)
	return h.tg.SendText(chatID, "❌ Something went wrong. Please try again.")
}

// logoFromMessage records what the form would know about an uploaded logo.
// The file itself is never downloaded.
func logoFromMessage(msg *tgbotapi.Message) (campaign.Logo, bool) {
	modified := int64(msg.Date) * 1000

	if len(msg.Photo) > 0 {
		p := msg.Photo[len(msg.Photo)-1]
		return campaign.Logo{
			Name:         "photo-" + p.FileUniqueID + ".jpg",
			Size:         int64(p.FileSize),
			Type:         "image/jpeg",
			LastModified: modified,
		}, true
	}

	if d := msg.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		return campaign.Logo{
			Name:         d.FileName,
			Size:         int64(d.FileSize),
			Type:         d.MimeType,
			LastModified: modified,
		}, true
	}

	return campaign.Logo{}, false
}

func countLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

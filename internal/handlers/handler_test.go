package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adforge/internal/adcopy"
	"adforge/internal/campaign"
	"adforge/internal/gallery"
	"adforge/internal/session"
	"adforge/internal/studio"
	"adforge/internal/telegram"
)

const chatID int64 = 42

type sentDocument struct {
	name string
	data []byte
}

type fakeMessenger struct {
	texts   []string
	photos  []string
	docs    []sentDocument
	docErr  error
	typings int
}

func (m *fakeMessenger) SendText(_ int64, text string) error {
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendPhoto(_ int64, src, _ string) error {
	m.photos = append(m.photos, src)
	return nil
}

func (m *fakeMessenger) SendDocument(_ int64, name string, data []byte, _ string) error {
	if m.docErr != nil {
		return m.docErr
	}
	m.docs = append(m.docs, sentDocument{name: name, data: data})
	return nil
}

func (m *fakeMessenger) SendTyping(int64) { m.typings++ }

func (m *fakeMessenger) last() string {
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}

type fakeStudio struct {
	ad  campaign.Ad
	err error
}

func (f *fakeStudio) Generate(context.Context, string, campaign.Brief) (campaign.Ad, error) {
	return f.ad, f.err
}

func (f *fakeStudio) Select(_ context.Context, _ string, id string) (campaign.Ad, error) {
	return f.Find(context.Background(), "", id)
}

func (f *fakeStudio) Current(context.Context, string) (campaign.Ad, error) {
	if f.ad.ID == "" {
		return campaign.Ad{}, session.ErrNotFound
	}
	return f.ad, nil
}

func (f *fakeStudio) History(context.Context, string) ([]campaign.Ad, error) {
	return []campaign.Ad{f.ad}, nil
}

func (f *fakeStudio) Find(_ context.Context, _ string, id string) (campaign.Ad, error) {
	if id != f.ad.ID {
		return campaign.Ad{}, session.ErrNotFound
	}
	return f.ad, nil
}

func (f *fakeStudio) Clear(context.Context, string) error { return nil }

func command(text string) telegram.Update {
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "\n")
	return telegram.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func text(t string) telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{Text: t, Chat: &tgbotapi.Chat{ID: chatID}}}
}

func newHandler(t *testing.T) (*Handler, *fakeMessenger) {
	t.Helper()
	st, err := studio.New(studio.Options{
		Synthesizer: adcopy.New(adcopy.Options{Picker: adcopy.NewPicker(3)}),
		Store:       session.NewMemoryStore(session.Options{}),
	})
	require.NoError(t, err)

	m := &fakeMessenger{}
	return New(Options{Messenger: m, Studio: st, Gallery: gallery.New(gallery.Options{})}), m
}

func TestHelpAndUnknownCommand(t *testing.T) {
	h, m := newHandler(t)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/start")))
	assert.Contains(t, m.last(), "/generate")

	require.NoError(t, h.HandleUpdate(t.Context(), command("/nope")))
	assert.Contains(t, m.last(), "Unknown command")

	require.NoError(t, h.HandleUpdate(t.Context(), telegram.Update{}))
}

func TestBriefSetAndFreeText(t *testing.T) {
	h, m := newHandler(t)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/brief\nbrand: Acme\ncolors: #ff0000, nope\nnonsense line")))
	assert.Contains(t, m.last(), "Brand: Acme")
	assert.Contains(t, m.last(), "Colors: #FF0000")
	assert.Contains(t, m.last(), "nonsense line")
	assert.Equal(t, "Acme", h.drafts.Get(chatID).BrandName)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/set tone Playful")))
	assert.Equal(t, "playful", h.drafts.Get(chatID).Tone)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/set bogus value")))
	assert.Contains(t, m.last(), `Unknown field "bogus"`)

	require.NoError(t, h.HandleUpdate(t.Context(), text("audience: founders")))
	assert.Equal(t, "founders", h.drafts.Get(chatID).TargetAudience)

	require.NoError(t, h.HandleUpdate(t.Context(), text("hello there")))
	assert.Contains(t, m.last(), "brand: Acme")
	assert.Equal(t, "founders", h.drafts.Get(chatID).TargetAudience)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/brief\nproduct: Kettle")))
	draft := h.drafts.Get(chatID)
	assert.Equal(t, "Kettle", draft.ProductName)
	assert.Empty(t, draft.BrandName)
}

func TestPhotoAttachesLogo(t *testing.T) {
	h, m := newHandler(t)

	update := telegram.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Date: 1700000000,
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileUniqueID: "s", FileSize: 10},
			{FileID: "big", FileUniqueID: "b", FileSize: 2048},
		},
	}}
	require.NoError(t, h.HandleUpdate(t.Context(), update))

	logo := h.drafts.Get(chatID).Logo
	require.NotNil(t, logo)
	assert.Equal(t, "photo-b.jpg", logo.Name)
	assert.Equal(t, int64(2048), logo.Size)
	assert.Equal(t, int64(1700000000000), logo.LastModified)
	assert.Contains(t, m.last(), "Logo noted")

	require.NoError(t, h.HandleUpdate(t.Context(), command("/draft")))
	assert.Contains(t, m.last(), "Logo: photo-b.jpg")
}

func TestInfoCommands(t *testing.T) {
	h, m := newHandler(t)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/platforms")))
	assert.Contains(t, m.last(), "instagram: Instagram (1080x1080) default")

	require.NoError(t, h.HandleUpdate(t.Context(), command("/tips")))
	assert.Contains(t, m.last(), "Tips")

	require.NoError(t, h.HandleUpdate(t.Context(), command("/set brand Acme")))
	require.NoError(t, h.HandleUpdate(t.Context(), command("/prompt")))
	assert.Contains(t, m.last(), "Acme")
}

func TestGenerateHistoryShowExport(t *testing.T) {
	h, m := newHandler(t)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/history")))
	assert.Contains(t, m.last(), "No ads yet")
	require.NoError(t, h.HandleUpdate(t.Context(), command("/export")))
	assert.Contains(t, m.last(), "No ads yet")

	require.NoError(t, h.HandleUpdate(t.Context(), command("/set brand Acme")))
	require.NoError(t, h.HandleUpdate(t.Context(), command("/generate")))
	assert.Equal(t, 1, m.typings)
	assert.Empty(t, m.photos)

	ad, err := h.studio.Current(t.Context(), "42")
	require.NoError(t, err)
	assert.Contains(t, m.last(), ad.Headline)
	assert.Contains(t, m.last(), "id "+ad.ID)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/history")))
	assert.Contains(t, m.last(), "▶ 1. "+ad.Headline)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/show "+ad.ID)))
	assert.Contains(t, m.last(), ad.Body)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/show missing")))
	assert.Contains(t, m.last(), `No ad with id "missing"`)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/export "+ad.ID)))
	require.Len(t, m.docs, 1)
	assert.Equal(t, "ad-"+ad.ID+".txt", m.docs[0].name)
	assert.Equal(t, studio.Export(ad), string(m.docs[0].data))

	m.docErr = errors.New("upload refused")
	require.NoError(t, h.HandleUpdate(t.Context(), command("/export")))
	assert.Equal(t, studio.Export(ad), m.last())

	require.NoError(t, h.HandleUpdate(t.Context(), command("/save")))
	assert.Contains(t, m.last(), "no creative")

	require.NoError(t, h.HandleUpdate(t.Context(), command("/clear")))
	assert.Contains(t, m.last(), "cleared")
	_, err = h.studio.Current(t.Context(), "42")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Empty(t, h.drafts.Get(chatID).BrandName)
}

func TestGenerateBusy(t *testing.T) {
	m := &fakeMessenger{}
	h := New(Options{Messenger: m, Studio: &fakeStudio{err: session.ErrBusy}})

	require.NoError(t, h.HandleUpdate(t.Context(), command("/generate")))
	assert.Contains(t, m.last(), "Still working")

	h = New(Options{Messenger: m, Studio: &fakeStudio{err: errors.New("boom")}})
	require.NoError(t, h.HandleUpdate(t.Context(), command("/generate")))
	assert.Contains(t, m.last(), "Generation failed")
}

func TestCreativeSaveAndGallery(t *testing.T) {
	m := &fakeMessenger{}
	fs := &fakeStudio{ad: campaign.Ad{
		ID:               "ad-1",
		Headline:         "Fresh roast",
		ImageSrc:         "data:image/png;base64,aW1n",
		ImageExternalURL: "https://cdn.example.com/a.png",
		ImageAlt:         "Instagram creative for Acme",
	}}
	h := New(Options{Messenger: m, Studio: fs})

	require.NoError(t, h.HandleUpdate(t.Context(), command("/save")))
	assert.Contains(t, m.last(), "not configured")

	h = New(Options{Messenger: m, Studio: fs, Gallery: gallery.New(gallery.Options{})})

	require.NoError(t, h.HandleUpdate(t.Context(), command("/generate")))
	assert.Equal(t, []string{"data:image/png;base64,aW1n"}, m.photos)

	require.NoError(t, h.HandleUpdate(t.Context(), command("/gallery")))
	assert.Contains(t, m.last(), "empty")

	require.NoError(t, h.HandleUpdate(t.Context(), command("/save ad-1")))
	assert.Equal(t, "✅ Saved to the gallery: https://cdn.example.com/a.png", m.last())

	require.NoError(t, h.HandleUpdate(t.Context(), command("/gallery")))
	assert.Contains(t, m.last(), "Fresh roast")
	assert.Contains(t, m.last(), "https://cdn.example.com/a.png")
}

func TestDraftStorePrune(t *testing.T) {
	s := NewDraftStore()
	s.Update(1, func(b *campaign.Brief) { b.BrandName = "A" })
	s.Update(2, nil)

	assert.Equal(t, 0, s.Prune(time.Hour))
	s.mu.Lock()
	s.m[1].updatedAt = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	assert.Equal(t, 1, s.Prune(time.Hour))
	assert.Empty(t, s.Get(1).BrandName)
}

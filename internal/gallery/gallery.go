package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"adforge/internal/asset"
)

const (
	DefaultTitle = "Generated creative"
	DefaultLimit = 10
)

var (
	ErrNoImage      = errors.New("item has neither image data nor an external url")
	ErrMissingOwner = errors.New("user id is required")

	unsafeKeyRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Item is what a caller hands to the gallery. ImageDataURL wins over
// ExternalURL when both are set.
type Item struct {
	UserID       string
	Title        string
	Prompt       string
	ImageDataURL string
	ExternalURL  string
	Metadata     map[string]any
}

type Stored struct {
	ID          string `json:"id"`
	ImageURL    string `json:"imageUrl"`
	StoragePath string `json:"storagePath,omitempty"`
}

type Record struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Title       string         `json:"title"`
	Prompt      string         `json:"prompt"`
	ImageURL    string         `json:"image_url"`
	StoragePath string         `json:"storage_path,omitempty"`
	SourceURL   string         `json:"source_url,omitempty"`
	Metadata    map[string]any `json:"meta"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Options struct {
	Objects     ObjectStore
	Index       Index
	Fetcher     asset.Fetcher
	WebP        bool
	WebPQuality float32
	Logger      *slog.Logger
	Now         func() time.Time
}

type Gallery struct {
	objects     ObjectStore
	index       Index
	fetcher     asset.Fetcher
	webp        bool
	webpQuality float32
	logger      *slog.Logger
	now         func() time.Time
}

func New(opts Options) *Gallery {
	index := opts.Index
	if index == nil {
		index = NewMemoryIndex()
	}
	quality := opts.WebPQuality
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Gallery{
		objects:     opts.Objects,
		index:       index,
		fetcher:     opts.Fetcher,
		webp:        opts.WebP,
		webpQuality: quality,
		logger:      logger,
		now:         now,
	}
}

// Save mirrors the image into object storage when it can and records the
// item in the index. Upload or mirror failures are logged and the record
// falls back to the source url; only index failures are returned.
func (g *Gallery) Save(ctx context.Context, item Item) (Stored, error) {
	userID := strings.TrimSpace(item.UserID)
	if userID == "" {
		return Stored{}, ErrMissingOwner
	}
	dataURL := strings.TrimSpace(item.ImageDataURL)
	external := strings.TrimSpace(item.ExternalURL)
	if dataURL == "" && external == "" {
		return Stored{}, ErrNoImage
	}

	now := g.now()
	var imageURL, storagePath string

	data, mimeType, err := g.load(ctx, dataURL, external)
	if err != nil {
		g.logger.Warn("image mirror skipped, keeping source url", "user", userID, "err", err)
	} else if g.objects != nil {
		data, mimeType = g.maybeWebP(data, mimeType)
		key := objectKey(userID, now, mimeType)
		url, err := g.objects.Put(ctx, key, mimeType, data)
		if err != nil {
			g.logger.Warn("image upload failed, keeping source url", "user", userID, "key", key, "err", err)
		} else {
			imageURL, storagePath = url, key
		}
	}
	if imageURL == "" {
		imageURL = external
	}
	if imageURL == "" {
		imageURL = dataURL
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = DefaultTitle
	}
	meta := item.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	rec := Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Prompt:      strings.TrimSpace(item.Prompt),
		ImageURL:    imageURL,
		StoragePath: storagePath,
		SourceURL:   external,
		Metadata:    meta,
		CreatedAt:   now.UTC(),
	}
	if err := g.index.Insert(ctx, rec); err != nil {
		return Stored{}, fmt.Errorf("index insert: %w", err)
	}

	g.logger.Info("gallery item saved", "user", userID, "id", rec.ID, "stored", storagePath != "")
	return Stored{ID: rec.ID, ImageURL: imageURL, StoragePath: storagePath}, nil
}

func (g *Gallery) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return g.index.Recent(ctx, strings.TrimSpace(userID), limit)
}

func (g *Gallery) load(ctx context.Context, dataURL, external string) ([]byte, string, error) {
	if dataURL != "" {
		return DecodeDataURL(dataURL)
	}
	if g.fetcher == nil {
		return nil, "", errors.New("no fetcher configured")
	}
	return g.fetcher.Fetch(ctx, external)
}

func (g *Gallery) maybeWebP(data []byte, mimeType string) ([]byte, string) {
	if !g.webp || (mimeType != "image/png" && mimeType != "image/jpeg") {
		return data, mimeType
	}
	out, err := ToWebP(data, g.webpQuality)
	if err != nil {
		g.logger.Warn("webp conversion failed, storing original", "mime", mimeType, "err", err)
		return data, mimeType
	}
	g.logger.Debug("converted to webp", "from_bytes", len(data), "to_bytes", len(out))
	return out, "image/webp"
}

func objectKey(userID string, now time.Time, mimeType string) string {
	owner := unsafeKeyRe.ReplaceAllString(userID, "_")
	return fmt.Sprintf("%s/%d-%s.%s", owner, now.Unix(), uuid.NewString(), Extension(mimeType))
}

// Extension maps an image mime type to a file extension, defaulting to png.
func Extension(mimeType string) string {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "png"):
		return "png"
	case strings.Contains(m, "jpeg"), strings.Contains(m, "jpg"):
		return "jpg"
	case strings.Contains(m, "webp"):
		return "webp"
	case strings.Contains(m, "gif"):
		return "gif"
	}
	return "png"
}

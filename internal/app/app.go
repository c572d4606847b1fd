package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"adforge/internal/adcopy"
	"adforge/internal/asset"
	"adforge/internal/config"
	"adforge/internal/gallery"
	"adforge/internal/httpclient"
	"adforge/internal/session"
	"adforge/internal/studio"
	"adforge/internal/webhook"
)

const (
	pruneEvery = 10 * time.Minute
	sessionTTL = 24 * time.Hour
)

type Options struct {
	Config   config.Config
	Logger   *slog.Logger
	Observer func(studio.Event)
}

// App holds the components shared by the web and bot front-ends.
type App struct {
	HTTP    *http.Client
	Studio  *studio.Studio
	Gallery *gallery.Gallery

	logger  *slog.Logger
	beacon  *webhook.Beacon
	memory  *session.MemoryStore
	closers []func() error
}

// New wires every backend selected by cfg. Backends that need a network
// round trip (Redis, Postgres) are verified before New returns.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{logger: logger}
	a.HTTP = httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher := asset.NewFetcher(asset.FetcherOptions{
		HTTPClient:   a.HTTP,
		MaxBytes:     cfg.ImageMaxBytes,
		AllowPrivate: cfg.ImageAllowPrivateHosts,
	})

	a.Gallery, err = a.openGallery(ctx, cfg, fetcher)
	if err != nil {
		a.Close()
		return nil, err
	}

	var picker adcopy.Picker
	if cfg.CopySeed != 0 {
		picker = adcopy.NewPicker(cfg.CopySeed)
	}

	studioOpts := studio.Options{
		Synthesizer: adcopy.New(adcopy.Options{Picker: picker}),
		Resolver:    asset.NewResolver(asset.Options{Fetcher: fetcher, Logger: logger}),
		Store:       store,
		Logger:      logger,
		Observer:    opts.Observer,
	}
	if wh := a.newWebhook(ctx, cfg); wh.Enabled() {
		studioOpts.Webhook = wh
	} else {
		logger.Warn("WEBHOOK_URL is not set, ads are generated locally only")
	}

	a.Studio, err = studio.New(studioOpts)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (session.Store, error) {
	if cfg.RedisAddr == "" {
		a.memory = session.NewMemoryStore(session.Options{MaxHistory: cfg.HistoryLimit})
		return a.memory, nil
	}

	rdb, err := session.Connect(ctx, session.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TLS:      cfg.RedisTLS,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb.Close)
	a.logger.Info("session store ready", "backend", "redis", "addr", cfg.RedisAddr)

	return session.NewRedisStore(rdb, session.RedisOptions{
		MaxHistory: cfg.HistoryLimit,
		SessionTTL: sessionTTL,
		Logger:     a.logger,
	}), nil
}

func (a *App) openGallery(ctx context.Context, cfg config.Config, fetcher asset.Fetcher) (*gallery.Gallery, error) {
	var index gallery.Index
	switch cfg.GalleryIndex {
	case config.IndexPostgres:
		db, err := gallery.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		pg := gallery.NewPostgresIndex(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate gallery: %w", err)
		}
		index = pg
	case config.IndexSupabase:
		sb, err := gallery.NewSupabaseIndex(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			return nil, err
		}
		index = sb
	default:
		index = gallery.NewMemoryIndex()
	}

	var objects gallery.ObjectStore
	switch cfg.GalleryObjects {
	case config.ObjectsLocal:
		local, err := gallery.NewLocalObjects(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		objects = local
	case config.ObjectsSupabase:
		remote, err := gallery.NewSupabaseObjects(gallery.SupabaseObjectsOptions{
			URL:        cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Bucket:     cfg.SupabaseBucket,
			HTTPClient: a.HTTP,
		})
		if err != nil {
			return nil, err
		}
		objects = remote
	}

	a.logger.Info("gallery ready", "index", cfg.GalleryIndex, "objects", cfg.GalleryObjects, "webp", cfg.GalleryWebP)

	return gallery.New(gallery.Options{
		Objects:     objects,
		Index:       index,
		Fetcher:     fetcher,
		WebP:        cfg.GalleryWebP,
		WebPQuality: float32(cfg.GalleryWebPQuality),
		Logger:      a.logger,
	}), nil
}

func (a *App) newWebhook(ctx context.Context, cfg config.Config) *webhook.Client {
	if cfg.WebhookBeaconQueue > 0 && cfg.WebhookURL != "" {
		a.beacon = webhook.NewBeacon(webhook.BeaconOptions{
			HTTPClient: a.HTTP,
			QueueSize:  cfg.WebhookBeaconQueue,
			Timeout:    cfg.WebhookTimeout,
			Logger:     a.logger,
		})
		a.beacon.Start(ctx)
	}

	return webhook.New(webhook.Options{
		URL:          cfg.WebhookURL,
		HTTPClient:   a.HTTP,
		Timeout:      cfg.WebhookTimeout,
		FormFallback: cfg.WebhookFormFallback,
		Beacon:       a.beacon,
		Logger:       a.logger,
	})
}

// RunJanitor prunes idle in-memory sessions until ctx is done. extra is
// called on the same schedule, for front-end state such as bot drafts.
// Redis-backed sessions expire on their own.
func (a *App) RunJanitor(ctx context.Context, extra ...func(ttl time.Duration) int) {
	ticker := time.NewTicker(pruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			if a.memory != nil {
				removed += a.memory.Prune(sessionTTL)
			}
			for _, fn := range extra {
				removed += fn(sessionTTL)
			}
			if removed > 0 {
				a.logger.Debug("pruned idle sessions", "removed", removed)
			}
		}
	}
}

func (a *App) Close() {
	if a.beacon != nil {
		a.beacon.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown cleanup failed", "err", err)
	}
}

package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"adforge/internal/asset"
	"adforge/internal/campaign"
	"adforge/internal/platform"
	"adforge/internal/session"
	"adforge/internal/webhook"
)

type State string

const (
	Idle       State = "idle"
	Generating State = "generating"
	Delivered  State = "delivered"
	Failed     State = "failed"
	TimedOut   State = "timed_out"
)

const (
	defaultResolveTimeout = 20 * time.Second
	pushTimeout           = 5 * time.Second
)

type Event struct {
	SessionID string    `json:"session"`
	State     State     `json:"state"`
	AdID      string    `json:"adId,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

type Copywriter interface {
	Generate(brief campaign.Brief) campaign.Ad
}

type Sender interface {
	Send(ctx context.Context, payload any) webhook.Result
}

type ImageResolver interface {
	Prepare(ctx context.Context, payload any) asset.Asset
}

type Options struct {
	Synthesizer Copywriter
	Webhook     Sender
	Resolver    ImageResolver
	Store       session.Store
	Logger      *slog.Logger
	Observer    func(Event)
	Now         func() time.Time

	// ResolveTimeout bounds image materialization on top of the caller's
	// deadline. Defaults to 20s.
	ResolveTimeout time.Duration
}

// Studio runs generation cycles. Each cycle holds the session's busy guard
// from start to finish and publishes the ad only after the merge.
type Studio struct {
	synth    Copywriter
	webhook  Sender
	resolver ImageResolver
	store    session.Store
	logger   *slog.Logger
	observer func(Event)
	now      func() time.Time

	resolveTimeout time.Duration
}

func New(opts Options) (*Studio, error) {
	if opts.Synthesizer == nil {
		return nil, fmt.Errorf("studio: synthesizer is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("studio: store is required")
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = asset.NewResolver(asset.Options{Logger: opts.Logger})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	resolveTimeout := opts.ResolveTimeout
	if resolveTimeout <= 0 {
		resolveTimeout = defaultResolveTimeout
	}

	return &Studio{
		synth:    opts.Synthesizer,
		webhook:  opts.Webhook,
		resolver: resolver,
		store:    opts.Store,
		logger:   logger,
		observer: opts.Observer,
		now:      now,

		resolveTimeout: resolveTimeout,
	}, nil
}

type delivery struct {
	result webhook.Result
	image  asset.Asset
	prompt string
	file   string
}

// Generate runs one cycle: the webhook call and image resolution run in
// the background while copy is synthesized. Copy is never skipped, and
// only session.ErrBusy or an explicitly cancelled context stop the cycle.
// A caller deadline degrades the ad instead: an unanswered webhook ends
// as TimedOut and an unfinished image fetch falls back to its URL.
func (s *Studio) Generate(ctx context.Context, sessionID string, brief campaign.Brief) (campaign.Ad, error) {
	release, err := s.store.Acquire(ctx, sessionID)
	if err != nil {
		return campaign.Ad{}, err
	}
	defer release()

	start := s.now()
	s.emit(Event{SessionID: sessionID, State: Generating})

	details := platform.ForVariant(brief.Variant).Lookup(brief.Platform)

	var d delivery
	g, gctx := errgroup.WithContext(ctx)
	if s.webhook != nil {
		g.Go(func() error {
			d = s.deliver(gctx, brief, details)
			return nil
		})
	}

	ad := s.synth.Generate(brief)

	_ = g.Wait()
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		s.emit(Event{SessionID: sessionID, State: Failed, Error: err.Error()})
		s.emit(Event{SessionID: sessionID, State: Idle})
		return campaign.Ad{}, err
	}
	if s.webhook != nil && ctx.Err() != nil && d.result.Status == 0 && !d.result.OK && !d.result.TimedOut() {
		d = delivery{result: webhook.Result{Error: &webhook.Error{
			Code:    webhook.CodeTimeout,
			Message: "request deadline passed before the webhook answered",
		}}}
	}

	ad = merge(ad, d, details, brief)
	state := terminalState(s.webhook != nil, d.result)

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := s.store.Push(pushCtx, sessionID, ad); err != nil {
		s.logger.Error("history push failed", "session", sessionID, "ad", ad.ID, "err", err)
	}

	s.logger.Info("generation finished",
		"session", sessionID,
		"ad", ad.ID,
		"state", string(state),
		"platform", ad.Platform,
		"image", ad.HasImage(),
		"dur_ms", s.now().Sub(start).Milliseconds(),
	)

	ev := Event{SessionID: sessionID, State: state, AdID: ad.ID}
	if d.result.Error != nil {
		ev.Error = d.result.Error.Code
	}
	s.emit(ev)
	s.emit(Event{SessionID: sessionID, State: Idle, AdID: ad.ID})
	return ad, nil
}

// deliver sends the brief and resolves an image from whatever body came
// back, even when the status was not 2xx. Timeouts skip resolution.
func (s *Studio) deliver(ctx context.Context, brief campaign.Brief, details platform.Details) delivery {
	payload := webhook.BuildPayload(brief, details, s.now())
	res := s.webhook.Send(ctx, payload)

	d := delivery{result: res}
	if res.TimedOut() || !res.HasBody() {
		return d
	}
	rctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()
	d.image = s.resolver.Prepare(rctx, res.Data)
	d.prompt = asset.ExtractPrompt(res.Data)
	d.file = asset.ExtractFileName(res.Data)
	return d
}

func merge(ad campaign.Ad, d delivery, details platform.Details, brief campaign.Brief) campaign.Ad {
	ad.WebhookDelivered = d.result.OK
	ad.WebhookResponse = d.result.Data

	if d.result.TimedOut() {
		ad.ImageError = webhook.CodeTimeout
		return ad
	}

	ad.ImageSrc = d.image.Src
	ad.ImageExternalURL = d.image.ExternalURL
	ad.ImageError = d.image.Error
	ad.ImagePrompt = d.prompt
	ad.ImageFileName = d.file
	if ad.ImageSrc != "" {
		name := strings.TrimSpace(brief.Name())
		if name == "" {
			name = "your brand"
		}
		ad.ImageAlt = details.Label + " creative for " + name
	}
	return ad
}

func terminalState(attempted bool, res webhook.Result) State {
	switch {
	case !attempted:
		return Delivered
	case res.TimedOut():
		return TimedOut
	case res.OK:
		return Delivered
	default:
		return Failed
	}
}

func (s *Studio) Select(ctx context.Context, sessionID, id string) (campaign.Ad, error) {
	return s.store.Select(ctx, sessionID, id)
}

func (s *Studio) Current(ctx context.Context, sessionID string) (campaign.Ad, error) {
	return s.store.Current(ctx, sessionID)
}

func (s *Studio) History(ctx context.Context, sessionID string) ([]campaign.Ad, error) {
	return s.store.History(ctx, sessionID)
}

func (s *Studio) Find(ctx context.Context, sessionID, id string) (campaign.Ad, error) {
	return s.store.Find(ctx, sessionID, id)
}

func (s *Studio) Clear(ctx context.Context, sessionID string) error {
	return s.store.Clear(ctx, sessionID)
}

// Export is the clipboard text of an ad.
func Export(ad campaign.Ad) string {
	return ad.ExportText()
}

func (s *Studio) emit(ev Event) {
	if s.observer == nil {
		return
	}
	ev.At = s.now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("observer panicked", "panic", fmt.Sprint(r))
		}
	}()
	s.observer(ev)
}

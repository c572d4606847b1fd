package asset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const CodeUnavailable = "image-unavailable"

// Asset describes a resolved image. All fields empty means the payload
// carried no image reference at all.
type Asset struct {
	Src         string `json:"src"`
	ExternalURL string `json:"externalUrl"`
	Error       string `json:"error"`
}

type Options struct {
	Fetcher Fetcher
	Logger  *slog.Logger
}

type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func NewResolver(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{fetcher: opts.Fetcher, logger: logger}
}

// Prepare locates, normalizes and materializes an image reference from an
// untyped webhook payload. It never panics.
func (r *Resolver) Prepare(ctx context.Context, payload any) (out Asset) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("image resolution panicked", "panic", fmt.Sprint(rec))
			out = Asset{Error: CodeUnavailable}
		}
	}()

	ref, ok := Locate(payload)
	if !ok {
		return Asset{}
	}
	return r.materialize(ctx, ref)
}

func (r *Resolver) materialize(ctx context.Context, ref string) Asset {
	ref = strings.TrimSpace(ref)

	if isDataURL(ref) {
		return Asset{Src: ref}
	}
	if compact := stripSpace(ref); isBase64Payload(compact) {
		return Asset{Src: "data:" + sniffMime(compact) + ";base64," + compact}
	}

	normalized := Normalize(ref)
	u, ok := absoluteHTTP(normalized)
	if !ok {
		r.logger.Debug("image reference is not a usable url", "ref", truncate(ref, 80))
		return Asset{Error: CodeUnavailable}
	}
	if isBypassHost(u.Hostname()) {
		return Asset{Src: normalized, ExternalURL: ref}
	}

	if r.fetcher != nil {
		data, mimeType, err := r.fetcher.Fetch(ctx, normalized)
		if err == nil {
			return Asset{Src: toDataURL(mimeType, data), ExternalURL: ref}
		}
		r.logger.Warn("image embed failed, using external url", "url", normalized, "err", err)
	}
	return Asset{Src: normalized, ExternalURL: normalized}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

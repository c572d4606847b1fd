package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var ErrUnsafeURL = errors.New("url targets a restricted network")

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

type FetcherOptions struct {
	HTTPClient   *http.Client
	MaxBytes     int64
	AllowPrivate bool
}

type HTTPFetcher struct {
	http         *http.Client
	maxBytes     int64
	allowPrivate bool
	lookupIP     func(ctx context.Context, host string) ([]net.IPAddr, error)
}

func NewFetcher(opts FetcherOptions) *HTTPFetcher {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 15 << 20
	}
	return &HTTPFetcher{
		http:         httpClient,
		maxBytes:     maxBytes,
		allowPrivate: opts.AllowPrivate,
		lookupIP:     net.DefaultResolver.LookupIPAddr,
	}
}

// Fetch downloads an image and returns its bytes with the detected mime
// type. Non-image responses are rejected.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !f.allowPrivate {
		if err := f.checkHost(ctx, u.Hostname()); err != nil {
			return nil, "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("accept", "image/*")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("image fetch %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", errors.New("image body is empty")
	}

	mimeType := baseMime(resp.Header.Get("content-type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = baseMime(http.DetectContentType(data))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("unexpected content type %q", mimeType)
	}

	return data, mimeType, nil
}

func (f *HTTPFetcher) checkHost(ctx context.Context, host string) error {
	if ip := net.ParseIP(host); ip != nil {
		return checkIP(ip)
	}
	addrs, err := f.lookupIP(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, a := range addrs {
		if err := checkIP(a.IP); err != nil {
			return err
		}
	}
	return nil
}

func checkIP(ip net.IP) error {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("%w: %s", ErrUnsafeURL, ip)
	}
	return nil
}

func baseMime(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.Index(value, ";"); i >= 0 {
		value = value[:i]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

package gallery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ObjectStore puts bytes under a key and returns the url they are served
// from.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// LocalObjects writes files under a directory that cmd/web serves at
// /uploads/.
type LocalObjects struct {
	Dir     string
	BaseURL string
}

func NewLocalObjects(dir, baseURL string) (*LocalObjects, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalObjects{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalObjects) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	dst := filepath.Join(s.Dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.BaseURL + "/uploads/" + clean, nil
}

type SupabaseObjectsOptions struct {
	URL        string
	ServiceKey string
	Bucket     string
	HTTPClient *http.Client
}

// SupabaseObjects uploads to Supabase Storage over its REST endpoint and
// returns the public object url.
type SupabaseObjects struct {
	url    string
	key    string
	bucket string
	http   *http.Client
}

func NewSupabaseObjects(opts SupabaseObjectsOptions) (*SupabaseObjects, error) {
	if opts.URL == "" || opts.ServiceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}
	bucket := opts.Bucket
	if bucket == "" {
		bucket = "generated"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SupabaseObjects{
		url:    strings.TrimRight(opts.URL, "/"),
		key:    opts.ServiceKey,
		bucket: bucket,
		http:   httpClient,
	}, nil
}

func (s *SupabaseObjects) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)
	req.Header.Set("content-type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.bucket, key), nil
}

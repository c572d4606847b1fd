package webhook

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type BeaconOptions struct {
	HTTPClient *http.Client
	QueueSize  int
	Timeout    time.Duration
	Logger     *slog.Logger
}

type beaconRequest struct {
	url  string
	body []byte
}

// Beacon is a fire-and-forget delivery queue. Enqueue never blocks: it
// either accepts the payload or reports that the queue is full or closed.
type Beacon struct {
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan beaconRequest
	wg     sync.WaitGroup
}

func NewBeacon(opts BeaconOptions) *Beacon {
	size := opts.QueueSize
	if size <= 0 {
		size = 64
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Beacon{
		http:    httpClient,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan beaconRequest, size),
	}
}

func (b *Beacon) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for req := range b.queue {
			b.deliver(ctx, req)
		}
	}()
}

func (b *Beacon) Enqueue(url string, body []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}

	select {
	case b.queue <- beaconRequest{url: url, body: append([]byte(nil), body...)}:
		return true
	default:
		return false
	}
}

// Close stops accepting payloads and waits for queued ones to drain.
func (b *Beacon) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Beacon) deliver(ctx context.Context, r beaconRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(r.body))
	if err != nil {
		b.logger.Warn("beacon request build failed", "err", err)
		return
	}
	req.Header.Set("content-type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.Warn("beacon delivery failed", "err", err)
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	b.logger.Debug("beacon delivered", "status", resp.StatusCode)
}

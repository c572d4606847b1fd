package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	CodeTimeout   = "webhook-timeout"
	CodeHTTP      = "webhook-http-error"
	CodeTransport = "webhook-transport-failure"
	CodeDisabled  = "webhook-disabled"
	CodeEncode    = "webhook-encode-error"

	TransportJSON   = "json"
	TransportForm   = "form"
	TransportOpaque = "opaque"
	TransportBeacon = "beacon"

	defaultTimeout   = 45 * time.Second
	maxResponseBytes = 32 << 20
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Body    any    `json:"body,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Result is the outcome of one delivery. Data holds the decoded response
// body (JSON value or raw string) whenever one was read, including on
// non-2xx responses.
type Result struct {
	OK        bool   `json:"ok"`
	Data      any    `json:"data"`
	Status    int    `json:"status,omitempty"`
	Transport string `json:"transport,omitempty"`
	Error     *Error `json:"error,omitempty"`
}

func (r Result) TimedOut() bool {
	return r.Error != nil && r.Error.Code == CodeTimeout
}

func (r Result) HasBody() bool {
	return r.Data != nil
}

type Options struct {
	URL          string
	HTTPClient   *http.Client
	Timeout      time.Duration
	FormFallback bool
	Beacon       *Beacon
	Logger       *slog.Logger
}

type Client struct {
	url          string
	http         *http.Client
	timeout      time.Duration
	formFallback bool
	beacon       *Beacon
	logger       *slog.Logger
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		url:          strings.TrimSpace(opts.URL),
		http:         httpClient,
		timeout:      timeout,
		formFallback: opts.FormFallback,
		beacon:       opts.Beacon,
		logger:       logger,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

type strategy struct {
	name string
	send func(ctx context.Context, body []byte) (Result, error)
}

func (c *Client) strategies() []strategy {
	list := []strategy{{name: TransportJSON, send: c.postJSON}}
	if c.formFallback {
		list = append(list, strategy{name: TransportForm, send: c.postForm})
	}
	list = append(list, strategy{name: TransportOpaque, send: c.postOpaque})
	if c.beacon != nil {
		list = append(list, strategy{name: TransportBeacon, send: c.sendBeacon})
	}
	return list
}

// Send delivers payload through the transport cascade. A strategy that
// returns an error hands over to the next one; a timeout stops the
// cascade. Send never returns a Go error: every failure is described by
// Result.Error.
func (c *Client) Send(ctx context.Context, payload any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("webhook send panicked", "panic", r)
			res = failure(CodeTransport, fmt.Sprint(r))
		}
	}()

	if !c.Enabled() {
		return failure(CodeDisabled, "webhook url is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failure(CodeEncode, err.Error())
	}

	var lastErr error
	for _, s := range c.strategies() {
		start := time.Now()
		out, err := s.send(ctx, body)
		if err == nil {
			out.Transport = s.name
			c.logger.Debug("webhook delivered", "transport", s.name, "status", out.Status, "ok", out.OK, "dur_ms", time.Since(start).Milliseconds())
			return out
		}

		if isTimeout(err) {
			c.logger.Warn("webhook timed out", "transport", s.name, "timeout", c.timeout.String())
			return failure(CodeTimeout, fmt.Sprintf("no response within %s", c.timeout))
		}
		if ctx.Err() != nil {
			return failure(CodeTransport, ctx.Err().Error())
		}

		c.logger.Warn("webhook transport failed", "transport", s.name, "err", err)
		lastErr = err
	}

	return failure(CodeTransport, lastErr.Error())
}

func (c *Client) postJSON(ctx context.Context, body []byte) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json, text/plain, */*")

	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, body []byte) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"payload": {string(body)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")

	return c.do(req)
}

// postOpaque sends the body as a simple request and never reads the
// response, so it succeeds whenever the request goes out.
func (c *Client) postOpaque(ctx context.Context, body []byte) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("content-type", "text/plain;charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	resp.Body.Close()

	return Result{OK: true}, nil
}

var errBeaconRejected = errors.New("beacon queue rejected payload")

func (c *Client) sendBeacon(_ context.Context, body []byte) (Result, error) {
	if !c.beacon.Enqueue(c.url, body) {
		return Result{}, errBeaconRejected
	}
	return Result{OK: true}, nil
}

func (c *Client) do(req *http.Request) (Result, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, err
	}

	data := decodeBody(resp.Header.Get("content-type"), raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{
			OK:     false,
			Data:   data,
			Status: resp.StatusCode,
			Error: &Error{
				Code:    CodeHTTP,
				Message: fmt.Sprintf("webhook responded %s", resp.Status),
				Body:    data,
			},
		}, nil
	}

	return Result{OK: true, Data: data, Status: resp.StatusCode}, nil
}

// decodeBody parses JSON for JSON and text responses and otherwise keeps
// the raw text. An empty body decodes to nil.
func decodeBody(contentType string, raw []byte) any {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}

	ct := strings.ToLower(contentType)
	if ct == "" || strings.Contains(ct, "json") || strings.HasPrefix(ct, "text/") {
		var v any
		if err := json.Unmarshal([]byte(text), &v); err == nil {
			return v
		}
	}
	return text
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func failure(code, message string) Result {
	return Result{OK: false, Error: &Error{Code: code, Message: message}}
}

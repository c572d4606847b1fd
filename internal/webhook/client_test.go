package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adforge/internal/campaign"
	"adforge/internal/platform"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestSendJSONSuccess(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("content-type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("content-type", "application/json")
		_, _ = io.WriteString(w, `{"image":"https://cdn.example.com/a.png","prompt":"p"}`)
	}))
	defer srv.Close()

	c := New(Options{URL: srv.URL, Timeout: time.Second})
	res := c.Send(t.Context(), Payload{BrandName: "Acme"})

	require.True(t, res.OK)
	assert.Nil(t, res.Error)
	assert.Equal(t, TransportJSON, res.Transport)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, map[string]any{"image": "https://cdn.example.com/a.png", "prompt": "p"}, res.Data)
	assert.Equal(t, "Acme", got.BrandName)
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		body string
		want any
	}{
		{name: "empty", ct: "application/json", body: "  ", want: nil},
		{name: "json", ct: "application/json; charset=utf-8", body: `{"a":1}`, want: map[string]any{"a": float64(1)}},
		{name: "text with json", ct: "text/plain", body: `["x"]`, want: []any{"x"}},
		{name: "plain text", ct: "text/plain", body: "Workflow was started", want: "Workflow was started"},
		{name: "broken json", ct: "application/json", body: `{"a":`, want: `{"a":`},
		{name: "binary type kept raw", ct: "application/octet-stream", body: `{"a":1}`, want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeBody(tt.ct, []byte(tt.body)))
		})
	}
}

func TestSendHTTPErrorKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"data":{"url":"https://cdn.example.com/partial.png"}}`)
	}))
	defer srv.Close()

	res := New(Options{URL: srv.URL}).Send(t.Context(), Payload{})

	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeHTTP, res.Error.Code)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.True(t, res.HasBody())
	assert.Equal(t, res.Data, res.Error.Body)
	assert.Equal(t, TransportJSON, res.Transport)
}

func TestSendTimeoutStopsCascade(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	res := New(Options{URL: srv.URL, Timeout: 50 * time.Millisecond, FormFallback: true}).Send(t.Context(), Payload{})

	assert.False(t, res.OK)
	assert.Nil(t, res.Data)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeTimeout, res.Error.Code)
	assert.True(t, res.TimedOut())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendFallsBackToForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("content-type"))
		var p Payload
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("payload")), &p))
		assert.Equal(t, "Acme", p.BrandName)
		_, _ = io.WriteString(w, "queued")
	}))
	defer srv.Close()

	httpClient := &http.Client{Transport: rejectJSON(http.DefaultTransport)}
	res := New(Options{URL: srv.URL, HTTPClient: httpClient, FormFallback: true}).Send(t.Context(), Payload{BrandName: "Acme"})

	require.True(t, res.OK)
	assert.Equal(t, TransportForm, res.Transport)
	assert.Equal(t, "queued", res.Data)
}

func TestSendFallsBackToOpaque(t *testing.T) {
	var contentType atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType.Store(r.Header.Get("content-type"))
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	httpClient := &http.Client{Transport: rejectJSON(http.DefaultTransport)}
	res := New(Options{URL: srv.URL, HTTPClient: httpClient}).Send(t.Context(), Payload{})

	require.True(t, res.OK)
	assert.Equal(t, TransportOpaque, res.Transport)
	assert.Nil(t, res.Data)
	assert.Equal(t, "text/plain;charset=UTF-8", contentType.Load())
}

func TestSendAllTransportsFail(t *testing.T) {
	down := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	res := New(Options{URL: "http://webhook.invalid/hook", HTTPClient: down, FormFallback: true}).Send(t.Context(), Payload{})
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeTransport, res.Error.Code)
	assert.False(t, res.HasBody())

	beacon := NewBeacon(BeaconOptions{HTTPClient: down, QueueSize: 1})
	defer beacon.Close()
	res = New(Options{URL: "http://webhook.invalid/hook", HTTPClient: down, Beacon: beacon}).Send(t.Context(), Payload{})
	assert.True(t, res.OK)
	assert.Equal(t, TransportBeacon, res.Transport)

	res = New(Options{URL: "http://webhook.invalid/hook", HTTPClient: down, Beacon: beacon}).Send(t.Context(), Payload{})
	assert.False(t, res.OK, "queue of one is already full")
}

func TestSendDisabledAndUnencodable(t *testing.T) {
	res := New(Options{}).Send(t.Context(), Payload{})
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeDisabled, res.Error.Code)

	res = New(Options{URL: "http://example.com"}).Send(t.Context(), map[string]any{"bad": make(chan int)})
	require.NotNil(t, res.Error)
	assert.Equal(t, CodeEncode, res.Error.Code)
}

func TestBeaconDelivers(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		received <- string(b)
	}))
	defer srv.Close()

	beacon := NewBeacon(BeaconOptions{})
	beacon.Start(t.Context())
	require.True(t, beacon.Enqueue(srv.URL, []byte(`{"a":1}`)))
	beacon.Close()

	select {
	case body := <-received:
		assert.Equal(t, `{"a":1}`, body)
	case <-time.After(2 * time.Second):
		t.Fatal("beacon was not delivered")
	}
	assert.False(t, beacon.Enqueue(srv.URL, nil))
}

func TestBuildPayloadKeys(t *testing.T) {
	brief := campaign.Brief{
		BrandName:   "Acme",
		BrandColors: []string{"#abcdef", "nope"},
		Keywords:    "a, b",
		Platform:    "reels",
		Logo:        &campaign.Logo{Name: "logo.png", Size: 10, Type: "image/png", LastModified: 1700000000000},
	}
	details := platform.Brand().Lookup(brief.Platform)
	p := BuildPayload(brief, details, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"aspectRatio", "brandColors", "brandContext", "brandFeel", "brandMood", "brandName",
		"font", "goal", "headline", "keywords", "logo", "socialPlatform", "socialPlatformLabel",
		"submittedAt", "visualStyle",
	}, keys)
	assert.Equal(t, []any{"#ABCDEF"}, m["brandColors"])
	assert.Equal(t, "Reels / Stories", m["socialPlatformLabel"])
	assert.Equal(t, "1080x1920", m["aspectRatio"])
	assert.Equal(t, "2024-01-02T03:04:05Z", m["submittedAt"])
	assert.Equal(t, map[string]any{"name": "logo.png", "size": float64(10), "type": "image/png", "lastModified": float64(1700000000000)}, m["logo"])

	empty := BuildPayload(campaign.Brief{}, platform.Brand().Default(), time.Now())
	raw, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"brandColors":[]`)
	assert.Contains(t, string(raw), `"logo":null`)
}

func rejectJSON(next http.RoundTripper) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("content-type") == "application/json" {
			return nil, errors.New("blocked by cors")
		}
		return next.RoundTrip(r)
	})
}
